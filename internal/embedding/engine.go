// Package embedding lays normalized score vectors out in two dimensions with
// metric multidimensional scaling (SMACOF).
package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/areamap/backend/pkg/logger"
)

const (
	// Components is the embedding dimensionality.
	Components = 2
	// MaxRandomSeed bounds RandomSeed, exclusive.
	MaxRandomSeed = 10000
	// minDistance replaces zero distances in the Guttman transform.
	minDistance = 1e-5
)

type Config struct {
	NInit   int
	MaxIter int
	Eps     float64
}

func DefaultConfig() Config {
	return Config{NInit: 4, MaxIter: 300, Eps: 1e-3}
}

// Point is a 2-D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is the outcome of one Embed call.
type Result struct {
	Seed       int64   `json:"seed"`
	Raw        []Point `json:"raw"`
	Points     []Point `json:"points"`
	Stress     float64 `json:"stress"`
	Iterations int     `json:"iterations"`
	// DegenerateRows lists input rows with undefined features; they are
	// embedded as the zero vector.
	DegenerateRows []int `json:"degenerate_rows,omitempty"`
	// DegenerateAxes lists axes ("x", "y") with zero range, collapsed to 0.5.
	DegenerateAxes []string `json:"degenerate_axes,omitempty"`
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.NInit <= 0 {
		cfg.NInit = def.NInit
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Eps <= 0 {
		cfg.Eps = def.Eps
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// RandomSeed draws a seed uniformly from [0, MaxRandomSeed).
func RandomSeed() int64 {
	return rand.Int63n(MaxRandomSeed)
}

// Embed runs SMACOF NInit times from uniform random starts drawn from a
// source seeded with seed, keeps the lowest-stress layout and rescales each
// axis into [0,1]. Output rows follow input rows. The same m and seed always
// give identical output. A nil m yields an empty result.
func (e *Engine) Embed(ctx context.Context, m *mat.Dense, seed int64) (*Result, error) {
	res := &Result{Seed: seed}
	if m == nil {
		return res, nil
	}

	features := mat.DenseCopyOf(m)
	n, _ := features.Dims()
	for i := 0; i < n; i++ {
		row := features.RawRowView(i)
		if !floats.HasNaN(row) {
			continue
		}
		res.DegenerateRows = append(res.DegenerateRows, i)
		for j := range row {
			row[j] = 0
		}
	}
	if len(res.DegenerateRows) > 0 {
		logger.Warn("Degenerate rows embedded as zero vectors",
			zap.Ints("rows", res.DegenerateRows),
			zap.Int64("seed", seed),
		)
	}

	diss := euclideanDistances(features)
	rng := rand.New(rand.NewSource(seed))

	var best *mat.Dense
	bestStress := math.Inf(1)
	for run := 0; run < e.cfg.NInit; run++ {
		start := mat.NewDense(n, Components, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < Components; j++ {
				start.Set(i, j, rng.Float64())
			}
		}
		pos, stress, iters, err := e.smacof(ctx, diss, start)
		if err != nil {
			return nil, fmt.Errorf("smacof run %d: %w", run, err)
		}
		logger.Debug("SMACOF run finished",
			zap.Int("run", run),
			zap.Float64("stress", stress),
			zap.Int("iterations", iters),
		)
		if best == nil || stress < bestStress {
			best, bestStress, res.Iterations = pos, stress, iters
		}
	}

	res.Stress = bestStress
	res.Raw = make([]Point, n)
	for i := range res.Raw {
		res.Raw[i] = Point{X: best.At(i, 0), Y: best.At(i, 1)}
	}
	res.Points, res.DegenerateAxes = Rescale(res.Raw)
	if len(res.DegenerateAxes) > 0 {
		logger.Warn("Degenerate embedding axes collapsed to midpoint",
			zap.Strings("axes", res.DegenerateAxes),
			zap.Int64("seed", seed),
		)
	}
	return res, nil
}

// smacof iterates the Guttman transform from start until the normalized
// stress improves by less than Eps or MaxIter is reached.
func (e *Engine) smacof(ctx context.Context, diss *mat.Dense, start *mat.Dense) (*mat.Dense, float64, int, error) {
	n, _ := diss.Dims()
	x := start
	b := mat.NewDense(n, n, nil)
	var next mat.Dense

	oldStress := math.NaN()
	stress := 0.0
	iter := 0
	for iter = 1; iter <= e.cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, err
		}

		dis := euclideanDistances(x)
		stress = 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				d := dis.At(i, j) - diss.At(i, j)
				stress += d * d
			}
		}
		stress /= 2

		for i := 0; i < n; i++ {
			rowSum := 0.0
			for j := 0; j < n; j++ {
				d := dis.At(i, j)
				if d == 0 {
					d = minDistance
				}
				ratio := diss.At(i, j) / d
				b.Set(i, j, -ratio)
				rowSum += ratio
			}
			b.Set(i, i, b.At(i, i)+rowSum)
		}
		next.Mul(b, x)
		next.Scale(1/float64(n), &next)
		x = mat.DenseCopyOf(&next)

		norm := 0.0
		for i := 0; i < n; i++ {
			norm += floats.Norm(x.RawRowView(i), 2)
		}
		if norm == 0 {
			break
		}
		if !math.IsNaN(oldStress) && oldStress-stress/norm < e.cfg.Eps {
			break
		}
		oldStress = stress / norm
	}
	if iter > e.cfg.MaxIter {
		iter = e.cfg.MaxIter
	}
	return x, stress, iter, nil
}

func euclideanDistances(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(x.RawRowView(i), x.RawRowView(j), 2)
			out.Set(i, j, d)
			out.Set(j, i, d)
		}
	}
	return out
}
