// Package normalize turns a score table into row-stochastic feature vectors.
package normalize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/areamap/backend/internal/scoretable"
)

// Normalize projects t onto its category columns, in declared order, and
// divides every row by its sum. A row whose sum is zero or undefined becomes
// all NaN. An empty table yields nil.
func Normalize(t *scoretable.Table) *mat.Dense {
	n, k := t.Len(), len(t.Categories())
	if n == 0 || k == 0 {
		return nil
	}

	m := mat.NewDense(n, k, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		copy(row, t.Row(i).Scores)
		NormalizeRow(row)
		m.SetRow(i, row)
	}
	return m
}

// NormalizeRow scales v in place so that it sums to one.
func NormalizeRow(v []float64) {
	sum := floats.Sum(v)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range v {
			v[i] = math.NaN()
		}
		return
	}
	floats.Scale(1/sum, v)
}

// DegenerateRows returns the indices of rows holding any NaN.
func DegenerateRows(m *mat.Dense) []int {
	if m == nil {
		return nil
	}
	var out []int
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if floats.HasNaN(m.RawRowView(i)) {
			out = append(out, i)
		}
	}
	return out
}
