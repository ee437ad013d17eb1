// Package api wires the HTTP routes.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/areamap/backend/internal/api/handlers"
	"github.com/areamap/backend/internal/directory"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/internal/middleware/ratelimit"
	"github.com/areamap/backend/internal/middleware/validation"
	"github.com/areamap/backend/internal/store"
)

type Deps struct {
	Store     *store.Store
	Directory *directory.Directory
	// History may be nil when run history is disabled.
	History     handlers.RunHistory
	RateLimiter *ratelimit.RateLimiter
	FontSize    float64
}

// Register mounts everything under /api/v1 plus /metrics.
func Register(app *fiber.App, deps Deps) {
	embeddingHandler := handlers.NewEmbeddingHandler(deps.Store, deps.Directory, deps.FontSize)
	exportHandler := handlers.NewExportHandler(deps.Store)
	runsHandler := handlers.NewRunsHandler(deps.History)
	var wsLimiter handlers.Limiter
	if deps.RateLimiter != nil {
		wsLimiter = deps.RateLimiter
	}
	wsHandler := handlers.NewWebSocketHandler(deps.Store, deps.FontSize, wsLimiter)

	limited := func(c *fiber.Ctx) error { return c.Next() }
	if deps.RateLimiter != nil {
		limited = deps.RateLimiter.Middleware()
	}

	api := app.Group("/api/v1")
	api.Use(validation.Middleware(validation.Config{}))

	api.Get("/embedding", embeddingHandler.GetEmbedding)
	api.Post("/embedding/seed", limited, embeddingHandler.SetSeed)
	api.Get("/embedding/table", embeddingHandler.GetTable)
	api.Put("/embedding/table", limited, embeddingHandler.ReplaceTable)
	api.Post("/embedding/reset", limited, embeddingHandler.Reset)

	api.Get("/categories", embeddingHandler.GetCategories)
	api.Get("/areas/:area", embeddingHandler.GetArea)
	api.Get("/chart", embeddingHandler.GetChart)

	api.Get("/export/original", exportHandler.ExportOriginal)
	api.Get("/export/current", exportHandler.ExportCurrent)

	api.Get("/runs", runsHandler.ListRuns)
	api.Get("/runs/:id", runsHandler.GetRun)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", limited, websocket.New(wsHandler.HandleConnection))

	api.Get("/health", handlers.Health)
	api.Get("/ready", handlers.Ready(deps.Store))

	app.Get("/metrics", metrics.MetricsHandler())
}
