package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/embedding"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/pkg/circuitbreaker"
	"github.com/areamap/backend/pkg/logger"
	"github.com/areamap/backend/pkg/retry"
)

const embeddingPrefix = "embedding:"

type Client struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

func NewClient(ctx context.Context, host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	cfg := retry.DefaultConfig()
	cfg.Logger = logger.Log
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr), zap.Duration("ttl", ttl))

	return &Client{client: client, ttl: ttl, breaker: newBreaker()}, nil
}

// newBreaker keeps a flapping Redis from adding a network timeout to every
// re-embed.
func newBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New("redis", circuitbreaker.Config{
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		Logger:           logger.Log,
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
		},
	})
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetEmbedding(ctx context.Context, key string, res *embedding.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, embeddingPrefix+key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	logger.Debug("Embedding cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, key string) (*embedding.Result, bool, error) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, embeddingPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	var res embedding.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	logger.Debug("Embedding cache hit", zap.String("key", key))
	return &res, true, nil
}

// Purge deletes every cached embedding and returns how many keys were removed.
func (c *Client) Purge(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, embeddingPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Embedding cache purged", zap.Int("removed", removed))
	return removed, nil
}
