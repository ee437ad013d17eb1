package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areamap/backend/pkg/circuitbreaker"
)

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestNewClient_Unreachable(t *testing.T) {
	port := closedPort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := NewClient(ctx, "127.0.0.1", port, "", 0, time.Minute)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestGetEmbedding_BreakerOpensOnFailures(t *testing.T) {
	c := &Client{
		client: redis.NewClient(&redis.Options{
			Addr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(closedPort(t))),
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		}),
		ttl:     time.Minute,
		breaker: newBreaker(),
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, ok, err := c.GetEmbedding(ctx, "k")
		require.Error(t, err)
		assert.False(t, ok)
		assert.NotErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	}

	_, _, err := c.GetEmbedding(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	err = c.SetEmbedding(ctx, "k", nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
