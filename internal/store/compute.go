package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/areamap/backend/internal/embedding"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/internal/normalize"
	"github.com/areamap/backend/internal/scoretable"
	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/pkg/logger"
	"github.com/areamap/backend/pkg/utils"
)

// InvalidSeedError reports a seed that is not a non-negative integer.
type InvalidSeedError struct {
	Value string
}

func (e *InvalidSeedError) Error() string {
	return fmt.Sprintf("invalid seed %q: must be a non-negative integer", e.Value)
}

// ParseSeed accepts decimal integers and integral floats such as "42.0".
func ParseSeed(raw string) (int64, error) {
	v := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return 0, &InvalidSeedError{Value: raw}
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > math.MaxInt64/2 {
		return 0, &InvalidSeedError{Value: raw}
	}
	return int64(f), nil
}

func (s *Store) compute(ctx context.Context, tbl *scoretable.Table, seed int64, trigger Trigger) (*Snapshot, error) {
	start := time.Now()
	features := normalize.Normalize(tbl)
	key := s.cacheKey(features, seed)

	res, hit := s.cached(ctx, key)
	if !hit {
		var err error
		res, err = s.engine.Embed(ctx, features, seed)
		if err != nil {
			metrics.ReembedTotal.WithLabelValues(string(trigger), "error").Inc()
			logger.Error("Embedding failed",
				zap.String("trigger", string(trigger)),
				zap.Int64("seed", seed),
				zap.Error(err),
			)
			return nil, fmt.Errorf("embed %d rows: %w", tbl.Len(), err)
		}
		s.storeCached(ctx, key, res)
	}
	if len(res.Points) != tbl.Len() {
		metrics.ReembedTotal.WithLabelValues(string(trigger), "error").Inc()
		return nil, fmt.Errorf("embedding has %d points for %d rows", len(res.Points), tbl.Len())
	}

	elapsed := time.Since(start)
	metrics.EmbeddingDuration.WithLabelValues(string(trigger)).Observe(elapsed.Seconds())
	metrics.ReembedTotal.WithLabelValues(string(trigger), "ok").Inc()
	metrics.DegenerateRows.Add(float64(len(res.DegenerateRows)))
	for _, axis := range res.DegenerateAxes {
		metrics.DegenerateAxes.WithLabelValues(axis).Inc()
	}

	snap := &Snapshot{
		RunID:          uuid.NewString(),
		Seed:           seed,
		Trigger:        trigger,
		Points:         make([]Point, tbl.Len()),
		Categories:     tbl.DominantCategories(),
		Stress:         res.Stress,
		DegenerateRows: res.DegenerateRows,
		DegenerateAxes: res.DegenerateAxes,
		CacheHit:       hit,
		ComputedAt:     time.Now(),
	}
	for i, row := range tbl.Rows() {
		snap.Points[i] = Point{
			X:             res.Points[i].X,
			Y:             res.Points[i].Y,
			DisplayLabel:  row.DisplayLabel(),
			Campus:        row.Campus,
			Area:          row.Area,
			AreaShortname: row.AreaShortname,
			Category:      row.Category,
			Size:          s.bubbleSize,
		}
	}

	logger.Info("Embedding computed",
		zap.String("run_id", snap.RunID),
		zap.String("trigger", string(trigger)),
		zap.Int64("seed", seed),
		zap.Int("rows", tbl.Len()),
		zap.Float64("stress", res.Stress),
		zap.Bool("cache_hit", hit),
		zap.Duration("elapsed", elapsed),
	)

	s.record(ctx, tbl, snap, res, elapsed)
	return snap, nil
}

func (s *Store) cacheKey(features *mat.Dense, seed int64) string {
	cfg := s.engine.Config()
	prefix := fmt.Sprintf("seed=%d;n_init=%d;max_iter=%d;eps=%g", seed, cfg.NInit, cfg.MaxIter, cfg.Eps)
	if features == nil {
		return utils.HashFloats(prefix, nil)
	}
	r, c := features.Dims()
	prefix += fmt.Sprintf(";dims=%dx%d", r, c)
	return utils.HashFloats(prefix, mat.DenseCopyOf(features).RawMatrix().Data)
}

func (s *Store) cached(ctx context.Context, key string) (*embedding.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	res, ok, err := s.cache.GetEmbedding(ctx, key)
	if err != nil {
		logger.Warn("Embedding cache lookup failed", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return nil, false
	}
	if !ok || res == nil {
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("embedding").Inc()
	return res, true
}

func (s *Store) storeCached(ctx context.Context, key string, res *embedding.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetEmbedding(ctx, key, res); err != nil {
		logger.Warn("Embedding cache store failed", zap.Error(err))
	}
}

func (s *Store) record(ctx context.Context, tbl *scoretable.Table, snap *Snapshot, res *embedding.Result, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	run := &models.EmbeddingRun{
		ID:             snap.RunID,
		Trigger:        string(snap.Trigger),
		Seed:           snap.Seed,
		RowCount:       tbl.Len(),
		DegenerateRows: len(res.DegenerateRows),
		DegenerateAxes: strings.Join(res.DegenerateAxes, ","),
		Stress:         res.Stress,
		Iterations:     res.Iterations,
		CacheHit:       snap.CacheHit,
		DurationMS:     elapsed.Milliseconds(),
		CreatedAt:      snap.ComputedAt,
	}
	if snap.Trigger == TriggerTable {
		if csv, err := tbl.Export(); err == nil {
			run.TableCSV = string(csv)
		}
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		logger.Warn("Failed to record embedding run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
