// Package cli implements the areamap command line tool.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/areamap/backend/pkg/config"
	"github.com/areamap/backend/pkg/logger"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type RootOptions struct {
	ConfigPath string
	LogLevel   string
	NoColor    bool
	Timeout    time.Duration
}

// CLIContext carries the loaded configuration to subcommands.
type CLIContext struct {
	Config  *config.Config
	NoColor bool
	Timeout time.Duration
}

type cliContextKey struct{}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "areamap",
		Short:   "Embed research areas by category score and inspect the result",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "global operation timeout")

	cmd.AddCommand(
		NewEmbedCmd(),
		NewExportCmd(),
		NewLookupCmd(),
		NewRunsCmd(),
		NewCacheCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := logger.Init(opts.LogLevel, "console", "stderr"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cc := &CLIContext{Config: cfg, NoColor: opts.NoColor, Timeout: opts.Timeout}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))
	return nil
}

// withTimeout bounds a subcommand by the global --timeout.
func withTimeout(cmd *cobra.Command, cc *CLIContext) (context.Context, context.CancelFunc) {
	if cc.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cc.Timeout)
}

// GetCLIContext returns the context installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	if cmd.Context() == nil {
		return nil, fmt.Errorf("command context not initialized")
	}
	cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil, fmt.Errorf("command context not initialized")
	}
	return cc, nil
}

// Execute runs the root command.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
