package handlers

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/pkg/logger"
)

const maxRunsLimit = 200

// RunHistory is the read side of the embedding run log.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]models.EmbeddingRun, error)
	GetRun(ctx context.Context, id string) (*models.EmbeddingRun, error)
}

type RunsHandler struct {
	history RunHistory
}

// NewRunsHandler accepts a nil history; every request then answers 404.
func NewRunsHandler(history RunHistory) *RunsHandler {
	return &RunsHandler{history: history}
}

type runResponse struct {
	ID             string    `json:"id"`
	Trigger        string    `json:"trigger"`
	Seed           int64     `json:"seed"`
	RowCount       int       `json:"row_count"`
	DegenerateRows int       `json:"degenerate_rows"`
	DegenerateAxes []string  `json:"degenerate_axes,omitempty"`
	Stress         *float64  `json:"stress"`
	Iterations     int       `json:"iterations"`
	CacheHit       bool      `json:"cache_hit"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
	TableCSV       string    `json:"table_csv,omitempty"`
}

func toRunResponse(r *models.EmbeddingRun) runResponse {
	resp := runResponse{
		ID:             r.ID,
		Trigger:        r.Trigger,
		Seed:           r.Seed,
		RowCount:       r.RowCount,
		DegenerateRows: r.DegenerateRows,
		Iterations:     r.Iterations,
		CacheHit:       r.CacheHit,
		DurationMS:     r.DurationMS,
		CreatedAt:      r.CreatedAt,
		TableCSV:       r.TableCSV,
	}
	if r.DegenerateAxes != "" {
		resp.DegenerateAxes = strings.Split(r.DegenerateAxes, ",")
	}
	if !math.IsNaN(r.Stress) && !math.IsInf(r.Stress, 0) {
		stress := r.Stress
		resp.Stress = &stress
	}
	return resp
}

func (h *RunsHandler) ListRuns(c *fiber.Ctx) error {
	if h.history == nil {
		return historyDisabled(c)
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > maxRunsLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 200",
		})
	}

	runs, err := h.history.RecentRuns(c.UserContext(), limit)
	if err != nil {
		logger.Error("Failed to list embedding runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list runs",
		})
	}

	out := make([]runResponse, 0, len(runs))
	for i := range runs {
		out = append(out, toRunResponse(&runs[i]))
	}
	return c.JSON(fiber.Map{
		"runs": out,
	})
}

func (h *RunsHandler) GetRun(c *fiber.Ctx) error {
	if h.history == nil {
		return historyDisabled(c)
	}

	run, err := h.history.GetRun(c.UserContext(), c.Params("id"))
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}
	if err != nil {
		logger.Error("Failed to get embedding run", zap.String("run_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get run",
		})
	}
	return c.JSON(toRunResponse(run))
}

func historyDisabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Run history is disabled",
	})
}
