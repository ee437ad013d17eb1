// Package store owns the score tables and the embedding derived from them.
//
// Every mutation builds its new state completely before publishing it, so a
// failed operation leaves the previous table, seed and embedding in place.
// Mutations are serialized; readers always see a complete snapshot and are
// never blocked by a running embedding.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/areamap/backend/internal/embedding"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/internal/scoretable"
	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/pkg/logger"
)

// DefaultBubbleSize is the marker size given to every point.
const DefaultBubbleSize = 60

var ErrNotInitialized = errors.New("embedding store is not initialized")

type Trigger string

const (
	TriggerInitialize Trigger = "initialize"
	TriggerSeed       Trigger = "seed"
	TriggerTable      Trigger = "table"
	TriggerReset      Trigger = "reset"
)

// Cache stores embedding results by fingerprint.
type Cache interface {
	GetEmbedding(ctx context.Context, key string) (*embedding.Result, bool, error)
	SetEmbedding(ctx context.Context, key string, res *embedding.Result) error
}

// RunRecorder keeps a history of embedding runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.EmbeddingRun) error
}

type Options struct {
	// InitialSeed seeds Initialize; negative draws a random seed.
	InitialSeed int64
	BubbleSize  float64
	Engine      *embedding.Engine
	Cache       Cache
	Recorder    RunRecorder
	// RandomSeed overrides embedding.RandomSeed.
	RandomSeed func() int64
}

// Point is one rendered area.
type Point struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayLabel  string  `json:"area_campus"`
	Campus        string  `json:"campus"`
	Area          string  `json:"area"`
	AreaShortname string  `json:"area_shortname"`
	Category      string  `json:"category"`
	Size          float64 `json:"size"`
}

// Snapshot is an immutable view of the current embedding.
type Snapshot struct {
	RunID          string    `json:"run_id"`
	Seed           int64     `json:"seed"`
	Trigger        Trigger   `json:"trigger"`
	Points         []Point   `json:"points"`
	Categories     []string  `json:"categories"`
	Stress         float64   `json:"stress"`
	DegenerateRows []int     `json:"degenerate_rows,omitempty"`
	DegenerateAxes []string  `json:"degenerate_axes,omitempty"`
	CacheHit       bool      `json:"cache_hit"`
	ComputedAt     time.Time `json:"computed_at"`
}

type state struct {
	original *scoretable.Table
	current  *scoretable.Table
	seed     int64
	snapshot *Snapshot
}

type Store struct {
	engine      *embedding.Engine
	cache       Cache
	recorder    RunRecorder
	bubbleSize  float64
	initialSeed int64
	randomSeed  func() int64

	writeMu sync.Mutex

	mu    sync.RWMutex
	state *state
}

func New(opts Options) *Store {
	if opts.Engine == nil {
		opts.Engine = embedding.NewEngine(embedding.DefaultConfig())
	}
	if opts.BubbleSize <= 0 {
		opts.BubbleSize = DefaultBubbleSize
	}
	if opts.RandomSeed == nil {
		opts.RandomSeed = embedding.RandomSeed
	}
	return &Store{
		engine:      opts.Engine,
		cache:       opts.Cache,
		recorder:    opts.Recorder,
		bubbleSize:  opts.BubbleSize,
		initialSeed: opts.InitialSeed,
		randomSeed:  opts.RandomSeed,
	}
}

// InitializeFile loads the score source at path and embeds it.
func (s *Store) InitializeFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return s.Initialize(ctx, f)
}

// Initialize loads the original table from src, makes it current and embeds
// it with the configured initial seed. Calling it again replaces everything.
func (s *Store) Initialize(ctx context.Context, src io.Reader) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tbl, err := scoretable.Load(src)
	if err != nil {
		return err
	}

	seed := s.initialSeed
	if seed < 0 {
		seed = s.randomSeed()
	}
	snap, err := s.compute(ctx, tbl, seed, TriggerInitialize)
	if err != nil {
		return err
	}

	s.publish(&state{original: tbl, current: tbl, seed: seed, snapshot: snap})
	logger.Info("Embedding store initialized",
		zap.Int("rows", tbl.Len()),
		zap.Strings("categories", tbl.Categories()),
		zap.Int64("seed", seed),
	)
	return nil
}

// ReembedWithSeed recomputes the embedding of the current table. An empty
// raw draws a fresh random seed; anything else must parse with ParseSeed.
func (s *Store) ReembedWithSeed(ctx context.Context, raw string) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	var seed int64
	if strings.TrimSpace(raw) == "" {
		seed = s.randomSeed()
	} else if seed, err = ParseSeed(raw); err != nil {
		metrics.InvalidSeedTotal.Inc()
		return nil, err
	}

	snap, err := s.compute(ctx, st.current, seed, TriggerSeed)
	if err != nil {
		return nil, err
	}
	s.publish(&state{original: st.original, current: st.current, seed: seed, snapshot: snap})
	return snap, nil
}

// ReembedWithTable replaces the current table with records and re-embeds it
// with the active seed.
func (s *Store) ReembedWithTable(ctx context.Context, records []map[string]any) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	next := st.current.ReplaceFromRecords(records)
	snap, err := s.compute(ctx, next, st.seed, TriggerTable)
	if err != nil {
		return nil, err
	}
	s.publish(&state{original: st.original, current: next, seed: st.seed, snapshot: snap})
	return snap, nil
}

// Reset restores the original table and re-embeds it with the active seed.
func (s *Store) Reset(ctx context.Context) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	snap, err := s.compute(ctx, st.original, st.seed, TriggerReset)
	if err != nil {
		return nil, err
	}
	s.publish(&state{original: st.original, current: st.original, seed: st.seed, snapshot: snap})
	return snap, nil
}

// ExportOriginal returns the loaded table as CSV.
func (s *Store) ExportOriginal() ([]byte, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.original.Export()
}

// ExportCurrent returns the current table as CSV over the source columns.
func (s *Store) ExportCurrent() ([]byte, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.current.Export()
}

// Categories returns the category set fixed at load time.
func (s *Store) Categories() ([]string, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.original.Categories(), nil
}

// CurrentRecords returns the current table in the editable record shape.
func (s *Store) CurrentRecords() ([]map[string]any, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.current.Records(), nil
}

// Snapshot returns the current embedding, or nil before Initialize.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return s.state.snapshot
}

// ActiveSeed returns the seed of the current embedding.
func (s *Store) ActiveSeed() (int64, error) {
	st, err := s.load()
	if err != nil {
		return 0, err
	}
	return st.seed, nil
}

// AreaKey selects a point. Empty Campus or AreaShortname match any row, so
// an area name alone resolves to its first row in current order.
type AreaKey struct {
	Campus        string
	AreaShortname string
	Area          string
}

func (k AreaKey) matches(p Point) bool {
	return p.Area == k.Area &&
		(k.Campus == "" || p.Campus == k.Campus) &&
		(k.AreaShortname == "" || p.AreaShortname == k.AreaShortname)
}

// LookupArea finds the first point matching key.
func (s *Store) LookupArea(key AreaKey) (Point, bool) {
	snap := s.Snapshot()
	if snap == nil {
		return Point{}, false
	}
	for _, p := range snap.Points {
		if key.matches(p) {
			return p, true
		}
	}
	return Point{}, false
}

func (s *Store) load() (*state, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrNotInitialized
	}
	return s.state, nil
}

func (s *Store) publish(st *state) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	metrics.ActiveSeed.Set(float64(st.seed))
	metrics.TableRows.Set(float64(st.current.Len()))
	metrics.EmbeddingStress.Set(st.snapshot.Stress)
}
