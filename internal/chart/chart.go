// Package chart builds the bubble chart view model for an embedding snapshot.
package chart

import (
	"sort"

	"github.com/areamap/backend/internal/store"
)

const (
	// ReferenceWidth is the viewport width at which sizes are unscaled.
	ReferenceWidth  = 1200
	DefaultFontSize = 8
	MarkerOpacity   = 0.1
	LegendMarker    = 10
	Title           = "click bubble to see PIs"
)

// Palette is matplotlib's tab10.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Bubble is one marker. Campus and AreaShortname identify the row for an
// area lookup.
type Bubble struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Text          string  `json:"text"`
	Hover         string  `json:"hover"`
	Area          string  `json:"area"`
	Campus        string  `json:"campus"`
	AreaShortname string  `json:"area_shortname"`
	Category      string  `json:"category"`
	Color         string  `json:"color"`
	Size          float64 `json:"size"`
}

type LegendEntry struct {
	Category string `json:"category"`
	Color    string `json:"color"`
}

// Figure is everything a client needs to draw the chart.
type Figure struct {
	Title    string        `json:"title"`
	Width    int           `json:"width"`
	Scale    float64       `json:"scale"`
	FontSize float64       `json:"font_size"`
	Opacity  float64       `json:"opacity"`
	SizeRef  float64       `json:"size_ref"`
	Seed     int64         `json:"seed"`
	Bubbles  []Bubble      `json:"bubbles"`
	Legend   []LegendEntry `json:"legend"`
}

// Build lays out snap for a viewport of width pixels. A non-positive width
// means ReferenceWidth. Marker and label sizes scale with width/ReferenceWidth.
// Colors follow the order in which categories first appear among the points
// and wrap after ten; the legend lists categories sorted by name.
func Build(snap *store.Snapshot, width int, fontSize float64) *Figure {
	if width <= 0 {
		width = ReferenceWidth
	}
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	scale := float64(width) / ReferenceWidth

	fig := &Figure{
		Title:    Title,
		Width:    width,
		Scale:    scale,
		FontSize: fontSize * scale,
		Opacity:  MarkerOpacity,
		Bubbles:  []Bubble{},
		Legend:   []LegendEntry{},
	}
	if snap == nil {
		return fig
	}
	fig.Seed = snap.Seed

	colors := Colors(snap.Points)
	maxSize := 0.0
	for _, p := range snap.Points {
		if p.Size > maxSize {
			maxSize = p.Size
		}
		fig.Bubbles = append(fig.Bubbles, Bubble{
			X:             p.X,
			Y:             p.Y,
			Text:          p.DisplayLabel,
			Hover:         p.Area,
			Area:          p.Area,
			Campus:        p.Campus,
			AreaShortname: p.AreaShortname,
			Category:      p.Category,
			Color:         colors[p.Category],
			Size:          p.Size * scale,
		})
	}
	// sizemode=area with size_max 100. SizeRef stays at the reference width
	// so resizing grows and shrinks the bubbles.
	if maxSize > 0 {
		fig.SizeRef = 2 * maxSize / (100 * 100)
	}

	cats := make([]string, 0, len(colors))
	for c := range colors {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fig.Legend = append(fig.Legend, LegendEntry{Category: c, Color: colors[c]})
	}
	return fig
}

// Colors assigns palette colors to categories by first appearance.
func Colors(points []store.Point) map[string]string {
	out := map[string]string{}
	for _, p := range points {
		if _, ok := out[p.Category]; ok {
			continue
		}
		out[p.Category] = Palette[len(out)%len(Palette)]
	}
	return out
}
