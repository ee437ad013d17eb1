package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/areamap/backend/internal/scoretable"
)

func NewExportCmd() *cobra.Command {
	var scoresPath, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Validate a score CSV and write it back in canonical form",
		Long: `Loads the score CSV with the same checks the server applies at startup and
writes key columns and category columns, rows sorted by campus and short name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			tbl, err := scoretable.LoadFile(firstNonEmpty(scoresPath, cc.Config.Data.ScoresPath))
			if err != nil {
				return err
			}
			if outPath == "" {
				return tbl.WriteCSV(cmd.OutOrStdout())
			}

			data, err := tbl.Export()
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d areas to %s\n", tbl.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&scoresPath, "scores", "", "score CSV (default: data.scoresPath)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")
	return cmd
}
