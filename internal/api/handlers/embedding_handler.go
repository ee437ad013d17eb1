package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/chart"
	"github.com/areamap/backend/internal/directory"
	"github.com/areamap/backend/internal/store"
	"github.com/areamap/backend/pkg/logger"
)

type EmbeddingHandler struct {
	store    *store.Store
	dir      *directory.Directory
	fontSize float64
}

func NewEmbeddingHandler(s *store.Store, dir *directory.Directory, fontSize float64) *EmbeddingHandler {
	if dir == nil {
		dir = directory.Empty()
	}
	return &EmbeddingHandler{
		store:    s,
		dir:      dir,
		fontSize: fontSize,
	}
}

func (h *EmbeddingHandler) GetEmbedding(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	if snap == nil {
		return storeError(c, store.ErrNotInitialized)
	}
	return c.JSON(snap)
}

// SetSeed re-embeds with the submitted seed. The seed may be a JSON string or
// number; an empty or missing seed draws a random one.
func (h *EmbeddingHandler) SetSeed(c *fiber.Ctx) error {
	var req struct {
		Seed any `json:"seed"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			logger.Error("Failed to parse request body", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	snap, err := h.store.ReembedWithSeed(c.UserContext(), seedString(req.Seed))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(snap)
}

func (h *EmbeddingHandler) GetTable(c *fiber.Ctx) error {
	records, err := h.store.CurrentRecords()
	if err != nil {
		return storeError(c, err)
	}
	cats, err := h.store.Categories()
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"categories": cats,
		"records":    records,
	})
}

// ReplaceTable swaps in the edited table and re-embeds it with the active seed.
func (h *EmbeddingHandler) ReplaceTable(c *fiber.Ctx) error {
	var req struct {
		Records []map[string]any `json:"records"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	snap, err := h.store.ReembedWithTable(c.UserContext(), req.Records)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(snap)
}

func (h *EmbeddingHandler) Reset(c *fiber.Ctx) error {
	snap, err := h.store.Reset(c.UserContext())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(snap)
}

func (h *EmbeddingHandler) GetCategories(c *fiber.Ctx) error {
	cats, err := h.store.Categories()
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"categories": cats,
	})
}

// GetArea returns the category of an area together with its PIs. The optional
// campus and area_shortname query parameters pick one row when several
// campuses share an area name.
func (h *EmbeddingHandler) GetArea(c *fiber.Ctx) error {
	area, err := url.PathUnescape(c.Params("area"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid area",
		})
	}

	p, ok := h.store.LookupArea(store.AreaKey{
		Campus:        c.Query("campus"),
		AreaShortname: c.Query("area_shortname"),
		Area:          area,
	})
	pis := h.dir.PIs(area)
	if !ok && len(pis) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Area not found",
		})
	}
	if pis == nil {
		pis = []directory.PI{}
	}
	return c.JSON(fiber.Map{
		"area":           area,
		"campus":         p.Campus,
		"area_shortname": p.AreaShortname,
		"category":       p.Category,
		"pis":            pis,
	})
}

func (h *EmbeddingHandler) GetChart(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	if snap == nil {
		return storeError(c, store.ErrNotInitialized)
	}
	width := c.QueryInt("width", chart.ReferenceWidth)
	return c.JSON(chart.Build(snap, width, h.fontSize))
}

func seedString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// storeError maps store failures onto HTTP statuses.
func storeError(c *fiber.Ctx, err error) error {
	var seedErr *store.InvalidSeedError
	switch {
	case errors.As(err, &seedErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": seedErr.Error(),
		})
	case errors.Is(err, store.ErrNotInitialized):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		logger.Error("Embedding request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute embedding",
		})
	}
}
