package sqlite

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areamap/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordRun_AndRecentRuns(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, c.RecordRun(ctx, &models.EmbeddingRun{
		ID: "run-1", Trigger: "initialize", Seed: 2971, RowCount: 3,
		Stress: 0.12, Iterations: 40, DurationMS: 5, CreatedAt: base,
	}))
	require.NoError(t, c.RecordRun(ctx, &models.EmbeddingRun{
		ID: "run-2", Trigger: "table", Seed: 2971, RowCount: 3, DegenerateRows: 1,
		DegenerateAxes: "y", Stress: math.NaN(), CacheHit: true, DurationMS: 1,
		CreatedAt: base.Add(time.Second), TableCSV: "campus,area_shortname,area,A\n",
	}))

	runs, err := c.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.True(t, runs[0].CacheHit)
	assert.True(t, math.IsNaN(runs[0].Stress))
	assert.Equal(t, "y", runs[0].DegenerateAxes)
	assert.Empty(t, runs[0].TableCSV, "listing does not load snapshots")

	assert.Equal(t, "run-1", runs[1].ID)
	assert.InDelta(t, 0.12, runs[1].Stress, 1e-12)
	assert.Equal(t, base, runs[1].CreatedAt)
}

func TestGetRun_WithSnapshot(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RecordRun(ctx, &models.EmbeddingRun{
		ID: "edit", Trigger: "table", Seed: 1, RowCount: 1, CreatedAt: time.Now(),
		TableCSV: "campus,area_shortname,area,A\nUA,a,A,1\n",
	}))

	run, err := c.GetRun(ctx, "edit")
	require.NoError(t, err)
	assert.Equal(t, "campus,area_shortname,area,A\nUA,a,A,1\n", run.TableCSV)

	_, err = c.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecordRun_DuplicateID(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	run := &models.EmbeddingRun{ID: "dup", Trigger: "seed", CreatedAt: time.Now()}
	require.NoError(t, c.RecordRun(ctx, run))
	assert.Error(t, c.RecordRun(ctx, run))
}
