package scoretable

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReplaceFromRecords builds a table from edited records, keeping t's
// category set. It never fails: category cells that are not numeric become
// NaN, missing key cells become empty strings and unknown columns are kept as
// extra cells. Row order follows records and neither row count nor key
// uniqueness is checked.
func (t *Table) ReplaceFromRecords(records []map[string]any) *Table {
	catIndex := make(map[string]int, len(t.categories))
	for i, c := range t.categories {
		catIndex[c] = i
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{Scores: make([]float64, len(t.categories))}
		for i := range row.Scores {
			row.Scores[i] = math.NaN()
		}
		for col, val := range rec {
			switch col {
			case ColumnCampus:
				row.Campus = coerceString(val)
			case ColumnAreaShortname:
				row.AreaShortname = coerceString(val)
			case ColumnArea:
				row.Area = coerceString(val)
			default:
				if i, ok := catIndex[col]; ok {
					row.Scores[i] = coerceFloat(val)
					continue
				}
				if row.Extra == nil {
					row.Extra = map[string]string{}
				}
				row.Extra[col] = coerceString(val)
			}
		}
		row.Category = dominantCategory(t.categories, row.Scores)
		rows = append(rows, row)
	}

	return &Table{categories: t.categories, rows: rows}
}

// Records renders the table as row mappings over its source columns, the
// shape ReplaceFromRecords accepts. NaN scores are rendered as nil.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		rec := map[string]any{
			ColumnCampus:        r.Campus,
			ColumnAreaShortname: r.AreaShortname,
			ColumnArea:          r.Area,
		}
		for j, c := range t.categories {
			if math.IsNaN(r.Scores[j]) {
				rec[c] = nil
			} else {
				rec[c] = r.Scores[j]
			}
		}
		out[i] = rec
	}
	return out
}

// WriteCSV writes the source column set in table order. Extra and derived
// columns are never exported; NaN scores are written as empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(KeyColumns)+len(t.categories))
	for _, r := range t.rows {
		record[0], record[1], record[2] = r.Campus, r.AreaShortname, r.Area
		for j, v := range r.Scores {
			record[len(KeyColumns)+j] = formatScore(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export returns the CSV encoding produced by WriteCSV.
func (t *Table) Export() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coerceFloat(val any) float64 {
	f := toFloat(val)
	if math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

func toFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
