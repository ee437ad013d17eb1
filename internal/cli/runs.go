package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/areamap/backend/internal/storage/sqlite"
)

func NewRunsCmd() *cobra.Command {
	var dbPath, runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded embedding runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			client, err := sqlite.NewClient(firstNonEmpty(dbPath, cc.Config.SQLite.Path))
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.InitSchema(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if runID != "" {
				run, err := client.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "run %s: %s seed=%d rows=%d stress=%.4g\n",
					run.ID, run.Trigger, run.Seed, run.RowCount, run.Stress)
				if run.TableCSV != "" {
					fmt.Fprint(out, run.TableCSV)
				}
				return nil
			}

			runs, err := client.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			printRuns(out, runs, cc.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (default: sqlite.path)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "id", "", "show one run with its table snapshot")
	return cmd
}
