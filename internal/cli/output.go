package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/areamap/backend/internal/directory"
	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/internal/store"
)

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func printSnapshot(w io.Writer, snap *store.Snapshot, format string, noColor bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"x", "y", "campus", "area_shortname", "area", "category"}); err != nil {
			return err
		}
		for _, p := range snap.Points {
			rec := []string{
				strconv.FormatFloat(p.X, 'f', -1, 64),
				strconv.FormatFloat(p.Y, 'f', -1, 64),
				p.Campus, p.AreaShortname, p.Area, p.Category,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	degenerate := map[int]bool{}
	for _, i := range snap.DegenerateRows {
		degenerate[i] = true
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Campus", "Area", "Short", "Category", "X", "Y"})
	table.SetAutoWrapText(false)
	for i, p := range snap.Points {
		category := p.Category
		if degenerate[i] {
			category = paint(noColor, color.YellowString, "(no scores)")
		}
		table.Append([]string{p.Campus, p.Area, p.AreaShortname, category, formatCoord(p.X), formatCoord(p.Y)})
	}
	table.Render()

	fmt.Fprintf(w, "seed %d, stress %.4g, %d areas\n", snap.Seed, snap.Stress, len(snap.Points))
	for _, axis := range snap.DegenerateAxes {
		fmt.Fprintln(w, paint(noColor, color.YellowString, "axis "+axis+" has no spread; collapsed to 0.5"))
	}
	return nil
}

func printPIs(w io.Writer, area, category string, pis []directory.PI, noColor bool) {
	title := area
	if category != "" {
		title += " [" + paint(noColor, color.CyanString, category) + "]"
	}
	fmt.Fprintln(w, title)
	if len(pis) == 0 {
		fmt.Fprintln(w, "no PIs listed")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PI", "URL"})
	table.SetAutoWrapText(false)
	for _, pi := range pis {
		table.Append([]string{pi.Name, pi.URL})
	}
	table.Render()
}

func printRuns(w io.Writer, runs []models.EmbeddingRun, noColor bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Time", "Trigger", "Seed", "Rows", "Stress", "Cache", "Ms"})
	for _, r := range runs {
		cache := "miss"
		if r.CacheHit {
			cache = paint(noColor, color.GreenString, "hit")
		}
		table.Append([]string{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Trigger,
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.RowCount),
			strconv.FormatFloat(r.Stress, 'g', 4, 64),
			cache,
			strconv.FormatInt(r.DurationMS, 10),
		})
	}
	table.Render()
}

func paint(noColor bool, fn func(string, ...interface{}) string, s string) string {
	if noColor {
		return s
	}
	return fn("%s", s)
}
