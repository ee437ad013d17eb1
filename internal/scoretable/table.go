// Package scoretable holds the wide campus/area score table that feeds the
// embedding pipeline.
package scoretable

import (
	"math"
	"sort"
)

const (
	ColumnCampus        = "campus"
	ColumnAreaShortname = "area_shortname"
	ColumnArea          = "area"
)

// KeyColumns are the identifier columns, in export order.
var KeyColumns = []string{ColumnCampus, ColumnAreaShortname, ColumnArea}

// Key identifies an area record.
type Key struct {
	Campus        string `json:"campus"`
	AreaShortname string `json:"area_shortname"`
	Area          string `json:"area"`
}

// Row is one area record. Scores is aligned with the owning table's
// categories; missing or non-numeric cells are NaN.
type Row struct {
	Key
	Scores   []float64
	Category string
	// Extra carries non-score columns submitted with edited records.
	Extra map[string]string
}

// DisplayLabel is the chart text for the row.
func (r Row) DisplayLabel() string {
	return r.AreaShortname + "<br>(" + r.Campus + ")"
}

func (r Row) clone() Row {
	out := r
	out.Scores = append([]float64(nil), r.Scores...)
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Table is an immutable score table. Operations that change data return a
// new Table.
type Table struct {
	categories []string
	rows       []Row
}

// Categories returns the score columns in declared order. The set is fixed
// when the source is loaded and carried through every edit.
func (t *Table) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Columns returns the source column set: key columns then categories.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(KeyColumns)+len(t.categories))
	out = append(out, KeyColumns...)
	return append(out, t.categories...)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return t.rows[i].clone()
}

// Rows returns a copy of every row in table order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.clone()
	}
	return out
}

// Keys returns the row identities in table order.
func (t *Table) Keys() []Key {
	out := make([]Key, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Key
	}
	return out
}

// DominantCategories returns the sorted set of categories that are the
// dominant category of at least one row.
func (t *Table) DominantCategories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

// dominantCategory returns the category with the highest score, the first
// declared column winning ties. NaN scores are skipped; a row without any
// defined score has no category.
func dominantCategory(categories []string, scores []float64) string {
	best := -1
	for i, v := range scores {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return categories[best]
}
