package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embedding_runs (
		id TEXT PRIMARY KEY,
		trigger TEXT NOT NULL,
		seed INTEGER NOT NULL,
		row_count INTEGER NOT NULL,
		degenerate_rows INTEGER NOT NULL DEFAULT 0,
		degenerate_axes TEXT,
		stress REAL,
		iterations INTEGER,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON embedding_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_seed ON embedding_runs(seed);

	CREATE TABLE IF NOT EXISTS table_snapshots (
		run_id TEXT PRIMARY KEY,
		csv TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES embedding_runs(id) ON DELETE CASCADE
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// RecordRun stores run and, when it carries one, its table snapshot in a
// single transaction.
func (c *Client) RecordRun(ctx context.Context, run *models.EmbeddingRun) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO embedding_runs (id, trigger, seed, row_count, degenerate_rows, degenerate_axes,
			stress, iterations, cache_hit, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	cacheHit := 0
	if run.CacheHit {
		cacheHit = 1
	}
	var stress any
	if !math.IsNaN(run.Stress) && !math.IsInf(run.Stress, 0) {
		stress = run.Stress
	}

	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Trigger,
		run.Seed,
		run.RowCount,
		run.DegenerateRows,
		run.DegenerateAxes,
		stress,
		run.Iterations,
		cacheHit,
		run.DurationMS,
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding run: %w", err)
	}

	if run.TableCSV != "" {
		_, err = tx.ExecContext(ctx, `INSERT INTO table_snapshots (run_id, csv) VALUES (?, ?)`, run.ID, run.TableCSV)
		if err != nil {
			return fmt.Errorf("failed to insert table snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embedding run: %w", err)
	}

	logger.Debug("Embedding run recorded",
		zap.String("run_id", run.ID),
		zap.String("trigger", run.Trigger),
		zap.Int64("seed", run.Seed),
	)
	return nil
}

func (c *Client) RecentRuns(ctx context.Context, limit int) ([]models.EmbeddingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, trigger, seed, row_count, degenerate_rows, degenerate_axes, stress, iterations,
			cache_hit, duration_ms, created_at
		FROM embedding_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding runs: %w", err)
	}
	defer rows.Close()

	var runs []models.EmbeddingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embedding runs: %w", err)
	}

	return runs, nil
}

// GetRun returns a run with its table snapshot, or sql.ErrNoRows.
func (c *Client) GetRun(ctx context.Context, id string) (*models.EmbeddingRun, error) {
	query := `
		SELECT r.id, r.trigger, r.seed, r.row_count, r.degenerate_rows, r.degenerate_axes, r.stress,
			r.iterations, r.cache_hit, r.duration_ms, r.created_at, COALESCE(s.csv, '')
		FROM embedding_runs r
		LEFT JOIN table_snapshots s ON s.run_id = r.id
		WHERE r.id = ?
	`

	var run models.EmbeddingRun
	var axes sql.NullString
	var stress sql.NullFloat64
	var cacheHit int
	var createdAt int64
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Trigger, &run.Seed, &run.RowCount, &run.DegenerateRows, &axes, &stress,
		&run.Iterations, &cacheHit, &run.DurationMS, &createdAt, &run.TableCSV,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding run: %w", err)
	}
	run.DegenerateAxes = axes.String
	run.Stress = nullFloat(stress)
	run.CacheHit = cacheHit == 1
	run.CreatedAt = time.UnixMilli(createdAt)

	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.EmbeddingRun, error) {
	var r models.EmbeddingRun
	var axes sql.NullString
	var stress sql.NullFloat64
	var cacheHit int
	var createdAt int64

	err := s.Scan(&r.ID, &r.Trigger, &r.Seed, &r.RowCount, &r.DegenerateRows, &axes, &stress,
		&r.Iterations, &cacheHit, &r.DurationMS, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	r.DegenerateAxes = axes.String
	r.Stress = nullFloat(stress)
	r.CacheHit = cacheHit == 1
	r.CreatedAt = time.UnixMilli(createdAt)
	return &r, nil
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
