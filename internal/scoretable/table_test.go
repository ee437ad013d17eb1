package scoretable

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeAreas = `campus,area_shortname,area,Biology,Chemistry
UB,Bio,Biology,5,5
UA,Chem,Chemistry,0,10
UA,Bio,Biology,10,0
`

func mustLoad(t *testing.T, src string) *Table {
	t.Helper()
	tbl, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	return tbl
}

func TestLoad_SortsAndDerivesCategory(t *testing.T) {
	tbl := mustLoad(t, threeAreas)

	assert.Equal(t, []string{"Biology", "Chemistry"}, tbl.Categories())
	require.Equal(t, 3, tbl.Len())

	keys := tbl.Keys()
	assert.Equal(t, Key{"UA", "Bio", "Biology"}, keys[0])
	assert.Equal(t, Key{"UA", "Chem", "Chemistry"}, keys[1])
	assert.Equal(t, Key{"UB", "Bio", "Biology"}, keys[2])

	var cats []string
	for _, r := range tbl.Rows() {
		cats = append(cats, r.Category)
	}
	// 5/5 tie resolves to the first declared column
	assert.Equal(t, []string{"Biology", "Chemistry", "Biology"}, cats)
	assert.Equal(t, []string{"Biology", "Chemistry"}, tbl.DominantCategories())
}

func TestRow_DisplayLabel(t *testing.T) {
	tbl := mustLoad(t, threeAreas)
	assert.Equal(t, "Chem<br>(UA)", tbl.Row(1).DisplayLabel())
}

func TestDominantCategory_SkipsNaN(t *testing.T) {
	cats := []string{"a", "b", "c"}
	assert.Equal(t, "b", dominantCategory(cats, []float64{math.NaN(), 3, 1}))
	assert.Equal(t, "a", dominantCategory(cats, []float64{2, 2, 2}))
	assert.Equal(t, "", dominantCategory(cats, []float64{math.NaN(), math.NaN(), math.NaN()}))
}

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"missing key":      "campus,area,Biology\nUA,Biology,1\n",
		"no categories":    "campus,area_shortname,area\nUA,Bio,Biology\n",
		"duplicate key":    "campus,area_shortname,area,X\nUA,Bio,Biology,1\nUA,Bio,Biology,2\n",
		"non numeric":      "campus,area_shortname,area,X\nUA,Bio,Biology,lots\n",
		"negative":         "campus,area_shortname,area,X\nUA,Bio,Biology,-1\n",
		"ragged":           "campus,area_shortname,area,X\nUA,Bio,Biology\n",
		"duplicate column": "campus,area_shortname,area,X,X\nUA,Bio,Biology,1,2\n",
		"header only":      "campus,area_shortname,area,X\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(src))
			var mie *MalformedInputError
			require.Error(t, err)
			assert.True(t, errors.As(err, &mie), "want MalformedInputError, got %T", err)
		})
	}
}

func TestLoad_EmptyScoreIsNaN(t *testing.T) {
	tbl := mustLoad(t, "\ufeffcampus,area_shortname,area,X,Y\nUA,Bio,Biology,,3\n")
	row := tbl.Row(0)
	assert.True(t, math.IsNaN(row.Scores[0]))
	assert.Equal(t, "Y", row.Category)
	assert.Equal(t, "campus", tbl.Columns()[0])
}

func TestReplaceFromRecords_Lenient(t *testing.T) {
	tbl := mustLoad(t, threeAreas)

	edited := tbl.ReplaceFromRecords([]map[string]any{
		{"campus": "UA", "area_shortname": "Bio", "area": "Biology", "Biology": "1", "Chemistry": 9.0, "size": 60},
		{"campus": "UA", "area_shortname": "Bio", "area": "Biology", "Biology": "", "Chemistry": "n/a"},
		{"area": "Orphan", "Biology": 2, "Physics": 100},
	})

	require.Equal(t, 3, edited.Len())
	assert.Equal(t, []string{"Biology", "Chemistry"}, edited.Categories(), "edits never add categories")

	first := edited.Row(0)
	assert.Equal(t, []float64{1, 9}, first.Scores)
	assert.Equal(t, "Chemistry", first.Category)
	assert.Equal(t, "60", first.Extra["size"])

	second := edited.Row(1)
	assert.Equal(t, first.Key, second.Key, "duplicate keys are admitted on the edit path")
	assert.True(t, math.IsNaN(second.Scores[0]))
	assert.True(t, math.IsNaN(second.Scores[1]))
	assert.Equal(t, "", second.Category)

	third := edited.Row(2)
	assert.Equal(t, Key{Area: "Orphan"}, third.Key)
	assert.Equal(t, "100", third.Extra["Physics"])

	// source table is untouched
	assert.Equal(t, []float64{10, 0}, tbl.Row(0).Scores)
}

func TestRecords_RoundTripThroughReplace(t *testing.T) {
	tbl := mustLoad(t, "campus,area_shortname,area,X,Y\nUA,Bio,Biology,,3\n")
	recs := tbl.Records()
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0]["X"])

	again := tbl.ReplaceFromRecords(recs)
	assert.Equal(t, tbl.Keys(), again.Keys())
	assert.True(t, math.IsNaN(again.Row(0).Scores[0]))
	assert.Equal(t, 3.0, again.Row(0).Scores[1])
}

func TestExport_SourceColumnsOnly(t *testing.T) {
	tbl := mustLoad(t, threeAreas)
	edited := tbl.ReplaceFromRecords([]map[string]any{
		{"campus": "UA", "area_shortname": "Chem", "area": "Chemistry", "Biology": 0.5, "Chemistry": nil, "area_campus": "x"},
	})

	out, err := edited.Export()
	require.NoError(t, err)
	assert.Equal(t, "campus,area_shortname,area,Biology,Chemistry\nUA,Chem,Chemistry,0.5,\n", string(out))

	orig, err := tbl.Export()
	require.NoError(t, err)
	assert.Equal(t, "campus,area_shortname,area,Biology,Chemistry\n"+
		"UA,Bio,Biology,10,0\nUA,Chem,Chemistry,0,10\nUB,Bio,Biology,5,5\n", string(orig))
}
