package handlers

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/internal/store"
)

func TestSeedString(t *testing.T) {
	assert.Equal(t, "", seedString(nil))
	assert.Equal(t, "42", seedString("42"))
	assert.Equal(t, "42", seedString(float64(42)))
	assert.Equal(t, "4.5", seedString(4.5))
	assert.Equal(t, "true", seedString(true))

	_, err := store.ParseSeed(seedString(4.5))
	var ise *store.InvalidSeedError
	assert.True(t, errors.As(err, &ise))
}

func TestErrorMessage(t *testing.T) {
	msg := errorMessage(&store.InvalidSeedError{Value: "abc"})
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["error"], "abc")

	msg = errorMessage(store.ErrNotInitialized)
	assert.Equal(t, store.ErrNotInitialized.Error(), msg["error"])

	msg = errorMessage(errors.New("boom"))
	assert.Equal(t, "Failed to compute embedding", msg["error"])
}

func TestToRunResponse(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	resp := toRunResponse(&models.EmbeddingRun{
		ID:             "r1",
		Trigger:        "seed",
		Seed:           7,
		DegenerateAxes: "x,y",
		Stress:         0.5,
		CreatedAt:      created,
	})
	require.NotNil(t, resp.Stress)
	assert.Equal(t, 0.5, *resp.Stress)
	assert.Equal(t, []string{"x", "y"}, resp.DegenerateAxes)
	assert.Equal(t, created, resp.CreatedAt)

	resp = toRunResponse(&models.EmbeddingRun{Stress: math.Inf(1)})
	assert.Nil(t, resp.Stress)
	assert.Nil(t, resp.DegenerateAxes)
}
