package scoretable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MalformedInputError reports a score source that cannot be loaded.
type MalformedInputError struct {
	Line   int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed score table (line %d): %s", e.Line, e.Reason)
	}
	return "malformed score table: " + e.Reason
}

func malformed(line int, format string, args ...any) error {
	return &MalformedInputError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a score CSV strictly. The header must contain the key columns;
// every other column is a category. Empty score cells load as NaN, anything
// else that is not a non-negative number is rejected, as are duplicate keys.
// Rows are sorted by (campus, area_shortname).
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed(0, "empty source")
		}
		return nil, malformed(1, "read header: %v", err)
	}

	keyIdx := map[string]int{}
	var categories []string
	var categoryIdx []int
	seen := map[string]struct{}{}
	for i, cell := range header {
		name := cleanHeader(cell)
		if name == "" {
			return nil, malformed(1, "column %d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, malformed(1, "duplicate column %q", name)
		}
		seen[name] = struct{}{}
		switch name {
		case ColumnCampus, ColumnAreaShortname, ColumnArea:
			keyIdx[name] = i
		default:
			categories = append(categories, name)
			categoryIdx = append(categoryIdx, i)
		}
	}
	for _, col := range KeyColumns {
		if _, ok := keyIdx[col]; !ok {
			return nil, malformed(1, "missing key column %q", col)
		}
	}
	if len(categories) == 0 {
		return nil, malformed(1, "no category columns")
	}

	var rows []Row
	keys := map[Key]int{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, malformed(pe.Line, "%v", pe.Err)
			}
			return nil, malformed(0, "%v", err)
		}
		line, _ := reader.FieldPos(0)
		row := Row{
			Key: Key{
				Campus:        strings.TrimSpace(record[keyIdx[ColumnCampus]]),
				AreaShortname: strings.TrimSpace(record[keyIdx[ColumnAreaShortname]]),
				Area:          strings.TrimSpace(record[keyIdx[ColumnArea]]),
			},
			Scores: make([]float64, len(categories)),
		}
		if prev, dup := keys[row.Key]; dup {
			return nil, malformed(line, "duplicate area %s/%s/%s (first seen on line %d)",
				row.Campus, row.AreaShortname, row.Area, prev)
		}
		keys[row.Key] = line
		for j, idx := range categoryIdx {
			v, err := parseStrictScore(record[idx])
			if err != nil {
				return nil, malformed(line, "column %q: %v", categories[j], err)
			}
			row.Scores[j] = v
		}
		row.Category = dominantCategory(categories, row.Scores)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, malformed(0, "no area rows")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Campus != rows[j].Campus {
			return rows[i].Campus < rows[j].Campus
		}
		return rows[i].AreaShortname < rows[j].AreaShortname
	})

	return &Table{categories: categories, rows: rows}, nil
}

func parseStrictScore(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", cell)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", cell)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative score %v", v)
	}
	return v, nil
}

func cleanHeader(cell string) string {
	cell = strings.TrimPrefix(cell, "\ufeff")
	return strings.TrimSpace(norm.NFKC.String(cell))
}
