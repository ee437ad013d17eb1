// Package directory maps research areas to their principal investigators.
package directory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	columnArea = "area"
	columnPI   = "pi"
	columnURL  = "url"
)

// PI is one investigator with an optional profile URL.
type PI struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Directory is read-only after Load.
type Directory struct {
	areas map[string][]string
	urls  map[string]string
	order []string
}

// Empty returns a directory with no entries.
func Empty() *Directory {
	return &Directory{areas: map[string][]string{}, urls: map[string]string{}}
}

func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads an area,pi[,url] CSV. Rows with an empty area or pi are skipped.
// When a PI appears more than once the last non-empty URL is kept.
func Load(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("directory: empty source")
		}
		return nil, fmt.Errorf("directory: read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[norm.NFKC.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	ai, ok := idx[columnArea]
	if !ok {
		return nil, fmt.Errorf("directory: missing %q column", columnArea)
	}
	pi, ok := idx[columnPI]
	if !ok {
		return nil, fmt.Errorf("directory: missing %q column", columnPI)
	}
	ui, hasURL := idx[columnURL]

	d := Empty()
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("directory: %w", err)
		}
		area, name := field(rec, ai), field(rec, pi)
		if area == "" || name == "" {
			continue
		}
		if _, seen := d.areas[area]; !seen {
			d.order = append(d.order, area)
		}
		d.areas[area] = append(d.areas[area], name)
		if hasURL {
			if u := field(rec, ui); u != "" {
				d.urls[name] = u
			}
		}
	}
	return d, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// PIs returns the investigators of area sorted by name, or nil for an
// unknown area.
func (d *Directory) PIs(area string) []PI {
	names := d.areas[area]
	if len(names) == 0 {
		return nil
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	out := make([]PI, len(sorted))
	for i, n := range sorted {
		out[i] = PI{Name: n, URL: d.urls[n]}
	}
	return out
}

// Areas lists areas in first-seen order.
func (d *Directory) Areas() []string {
	return append([]string(nil), d.order...)
}

func (d *Directory) Len() int {
	return len(d.order)
}
