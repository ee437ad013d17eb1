package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/embedding"
	"github.com/areamap/backend/internal/store"
	"github.com/areamap/backend/pkg/config"
	"github.com/areamap/backend/pkg/logger"
)

type embedOptions struct {
	scoresPath string
	seed       string
	format     string
}

func NewEmbedCmd() *cobra.Command {
	opts := &embedOptions{}

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed a score table and print the 2-D layout",
		Long: `Loads a score CSV, normalizes each row, runs metric MDS with the given seed and
prints one line per area with its rescaled coordinates and dominant category.
--seed accepts a non-negative integer or "random"; empty uses embedding.initialSeed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()
			return runEmbed(ctx, cmd, cc, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scoresPath, "scores", "", "score CSV (default: data.scoresPath)")
	cmd.Flags().StringVar(&opts.seed, "seed", "", `MDS seed, or "random"`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table|csv|json")
	return cmd
}

func runEmbed(ctx context.Context, cmd *cobra.Command, cc *CLIContext, opts *embedOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	seed, err := resolveSeed(opts.seed, cc.Config.Embedding.InitialSeed)
	if err != nil {
		return err
	}

	s := newStore(cc.Config, seed)
	path := firstNonEmpty(opts.scoresPath, cc.Config.Data.ScoresPath)
	if err := s.InitializeFile(ctx, path); err != nil {
		return err
	}

	snap := s.Snapshot()
	logger.Info("Embedding complete",
		zap.String("scores", path),
		zap.Int64("seed", snap.Seed),
		zap.Int("rows", len(snap.Points)),
	)
	return printSnapshot(cmd.OutOrStdout(), snap, format, cc.NoColor)
}

// resolveSeed maps the --seed flag onto store.Options.InitialSeed, where a
// negative value asks for a random seed.
func resolveSeed(raw string, configured int64) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return configured, nil
	case "random":
		return -1, nil
	}
	return store.ParseSeed(raw)
}

func newStore(cfg *config.Config, seed int64) *store.Store {
	engine := embedding.NewEngine(embedding.Config{
		NInit:   cfg.Embedding.NInit,
		MaxIter: cfg.Embedding.MaxIter,
		Eps:     cfg.Embedding.Eps,
	})
	return store.New(store.Options{
		InitialSeed: seed,
		BubbleSize:  cfg.Data.BubbleSize,
		Engine:      engine,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseFormat(f string) (string, error) {
	switch f = strings.ToLower(f); f {
	case "table", "csv", "json":
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want table, csv or json)", f)
}
