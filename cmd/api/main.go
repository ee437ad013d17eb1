package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/api"
	"github.com/areamap/backend/internal/cache/redis"
	"github.com/areamap/backend/internal/directory"
	"github.com/areamap/backend/internal/embedding"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/internal/middleware/ratelimit"
	"github.com/areamap/backend/internal/middleware/security"
	"github.com/areamap/backend/internal/scoretable"
	"github.com/areamap/backend/internal/storage/sqlite"
	"github.com/areamap/backend/internal/store"
	"github.com/areamap/backend/pkg/config"
	appLogger "github.com/areamap/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting area map API server")
	metrics.Init()

	opts := store.Options{
		InitialSeed: cfg.Embedding.InitialSeed,
		BubbleSize:  cfg.Data.BubbleSize,
		Engine: embedding.NewEngine(embedding.Config{
			NInit:   cfg.Embedding.NInit,
			MaxIter: cfg.Embedding.MaxIter,
			Eps:     cfg.Embedding.Eps,
		}),
	}

	var history *sqlite.Client
	if cfg.SQLite.Enabled {
		history, err = sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer history.Close()

		if err := history.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		opts.Recorder = history
	}

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		cache, err := redis.NewClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second)
		cancel()
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer cache.Close()
			opts.Cache = cache
		}
	}

	s := store.New(opts)
	if err := s.InitializeFile(context.Background(), cfg.Data.ScoresPath); err != nil {
		var mie *scoretable.MalformedInputError
		if errors.As(err, &mie) {
			appLogger.Fatal("Score source is malformed",
				zap.String("path", cfg.Data.ScoresPath),
				zap.Int("line", mie.Line),
				zap.String("reason", mie.Reason),
			)
		}
		appLogger.Fatal("Failed to initialize embedding", zap.Error(err))
	}

	dir, err := directory.LoadFile(cfg.Data.DirectoryPath)
	if err != nil {
		appLogger.Warn("PI directory unavailable", zap.String("path", cfg.Data.DirectoryPath), zap.Error(err))
		dir = directory.Empty()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HSTS:           cfg.Server.HSTS,
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
	})
	defer limiter.Stop()

	deps := api.Deps{
		Store:       s,
		Directory:   dir,
		RateLimiter: limiter,
		FontSize:    cfg.Data.FontSize,
	}
	if history != nil {
		deps.History = history
	}
	api.Register(app, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
