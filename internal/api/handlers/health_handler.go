package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/areamap/backend/internal/store"
)

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Ready reports ready once the store holds an embedding.
func Ready(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := s.Snapshot()
		if snap == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "initializing",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
			"seed":   snap.Seed,
			"rows":   len(snap.Points),
		})
	}
}
