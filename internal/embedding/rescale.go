package embedding

import "gonum.org/v1/gonum/floats"

// Midpoint is the coordinate a degenerate axis collapses to.
const Midpoint = 0.5

// Rescale maps each axis of pts independently onto [0,1] with
// (v - min) / (max - min). An axis whose range is zero cannot be scaled; all
// of its values become Midpoint and its name is reported.
func Rescale(pts []Point) ([]Point, []string) {
	out := make([]Point, len(pts))
	if len(pts) == 0 {
		return out, nil
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}

	var degenerate []string
	if !minMax(xs) {
		degenerate = append(degenerate, "x")
	}
	if !minMax(ys) {
		degenerate = append(degenerate, "y")
	}
	for i := range out {
		out[i] = Point{X: xs[i], Y: ys[i]}
	}
	return out, degenerate
}

// minMax rescales v in place and reports whether the range was usable.
func minMax(v []float64) bool {
	lo, hi := floats.Min(v), floats.Max(v)
	span := hi - lo
	if !(span > 0) {
		for i := range v {
			v[i] = Midpoint
		}
		return false
	}
	for i := range v {
		v[i] = (v[i] - lo) / span
	}
	return true
}
