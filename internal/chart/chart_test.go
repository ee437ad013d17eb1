package chart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areamap/backend/internal/store"
)

func snapshot() *store.Snapshot {
	return &store.Snapshot{
		Seed: 42,
		Points: []store.Point{
			{X: 0, Y: 1, DisplayLabel: "Chem<br>(UA)", Campus: "UA", AreaShortname: "Chem", Area: "Chemistry", Category: "Chemistry", Size: 60},
			{X: 1, Y: 0, DisplayLabel: "Bio<br>(UA)", Area: "Biology", Category: "Biology", Size: 60},
			{X: 0.5, Y: 0.5, DisplayLabel: "Bio<br>(UB)", Area: "Biology", Category: "Biology", Size: 60},
		},
	}
}

func TestBuild_ReferenceWidth(t *testing.T) {
	fig := Build(snapshot(), 0, 0)

	assert.Equal(t, ReferenceWidth, fig.Width)
	assert.Equal(t, 1.0, fig.Scale)
	assert.Equal(t, float64(DefaultFontSize), fig.FontSize)
	assert.Equal(t, int64(42), fig.Seed)
	require.Len(t, fig.Bubbles, 3)
	assert.Equal(t, 60.0, fig.Bubbles[0].Size)
	assert.Equal(t, "Chem<br>(UA)", fig.Bubbles[0].Text)
	assert.Equal(t, "Chemistry", fig.Bubbles[0].Hover)
	assert.Equal(t, "UA", fig.Bubbles[0].Campus)
	assert.Equal(t, "Chem", fig.Bubbles[0].AreaShortname)
	assert.InDelta(t, 2*60.0/10000, fig.SizeRef, 1e-12)
}

func TestBuild_ScalesWithWidth(t *testing.T) {
	fig := Build(snapshot(), 600, 8)
	assert.Equal(t, 0.5, fig.Scale)
	assert.Equal(t, 4.0, fig.FontSize)
	for _, b := range fig.Bubbles {
		assert.Equal(t, 30.0, b.Size)
	}
}

func TestBuild_BubbleAreaFollowsWidth(t *testing.T) {
	ratio := func(width int) float64 {
		fig := Build(snapshot(), width, 8)
		return fig.Bubbles[0].Size / fig.SizeRef
	}
	small, ref, large := ratio(600), ratio(1200), ratio(2400)

	assert.InDelta(t, 5000.0, ref, 1e-9)
	assert.InDelta(t, ref/2, small, 1e-9)
	assert.InDelta(t, ref*2, large, 1e-9)
	assert.Equal(t, Build(snapshot(), 600, 8).SizeRef, Build(snapshot(), 2400, 8).SizeRef)
}

func TestBuild_ColorsAndLegend(t *testing.T) {
	fig := Build(snapshot(), 1200, 8)

	assert.Equal(t, Palette[0], fig.Bubbles[0].Color)
	assert.Equal(t, Palette[1], fig.Bubbles[1].Color)
	assert.Equal(t, fig.Bubbles[1].Color, fig.Bubbles[2].Color)

	assert.Equal(t, []LegendEntry{
		{Category: "Biology", Color: Palette[1]},
		{Category: "Chemistry", Color: Palette[0]},
	}, fig.Legend)
}

func TestColors_WrapAfterPalette(t *testing.T) {
	var pts []store.Point
	for i := 0; i < len(Palette)+1; i++ {
		pts = append(pts, store.Point{Category: fmt.Sprintf("c%02d", i)})
	}
	colors := Colors(pts)
	assert.Equal(t, Palette[0], colors["c10"])
	assert.Equal(t, Palette[9], colors["c09"])
}

func TestBuild_NilSnapshot(t *testing.T) {
	fig := Build(nil, 800, 8)
	assert.Empty(t, fig.Bubbles)
	assert.Empty(t, fig.Legend)
	assert.Equal(t, Title, fig.Title)
}
