package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/areamap/backend/internal/directory"
	"github.com/areamap/backend/internal/scoretable"
)

func NewLookupCmd() *cobra.Command {
	var pisPath, scoresPath, campus string

	cmd := &cobra.Command{
		Use:   "lookup AREA",
		Short: "Show the PIs of a research area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			area := args[0]

			dir, err := directory.LoadFile(firstNonEmpty(pisPath, cc.Config.Data.DirectoryPath))
			if err != nil {
				return err
			}

			category := ""
			path := firstNonEmpty(scoresPath, cc.Config.Data.ScoresPath)
			tbl, err := scoretable.LoadFile(path)
			switch {
			case err == nil:
				category = categoryOf(tbl, area, campus)
			case scoresPath != "" || !errors.Is(err, os.ErrNotExist):
				return err
			}

			printPIs(cmd.OutOrStdout(), area, category, dir.PIs(area), cc.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&pisPath, "pis", "", "area,pi,url CSV (default: data.directoryPath)")
	cmd.Flags().StringVar(&scoresPath, "scores", "", "score CSV used for the category (default: data.scoresPath)")
	cmd.Flags().StringVar(&campus, "campus", "", "campus of the area when several campuses share its name")
	return cmd
}

func categoryOf(tbl *scoretable.Table, area, campus string) string {
	for _, row := range tbl.Rows() {
		if row.Area == area && (campus == "" || row.Campus == campus) {
			return row.Category
		}
	}
	return ""
}
