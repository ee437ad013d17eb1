package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/areamap/backend/internal/store"
)

const (
	OriginalFilename = "area2category_score_campus.csv"
	CurrentFilename  = "area2category_score_campus_edited.csv"
)

type ExportHandler struct {
	store *store.Store
}

func NewExportHandler(s *store.Store) *ExportHandler {
	return &ExportHandler{store: s}
}

func (h *ExportHandler) ExportOriginal(c *fiber.Ctx) error {
	data, err := h.store.ExportOriginal()
	if err != nil {
		return storeError(c, err)
	}
	return sendCSV(c, OriginalFilename, data)
}

func (h *ExportHandler) ExportCurrent(c *fiber.Ctx) error {
	data, err := h.store.ExportCurrent()
	if err != nil {
		return storeError(c, err)
	}
	return sendCSV(c, CurrentFilename, data)
}

func sendCSV(c *fiber.Ctx, filename string, data []byte) error {
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(data)
}
