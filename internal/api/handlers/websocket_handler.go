package handlers

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/areamap/backend/internal/chart"
	"github.com/areamap/backend/internal/metrics"
	"github.com/areamap/backend/internal/store"
	"github.com/areamap/backend/pkg/logger"
)

// Message is a client request on the websocket.
type Message struct {
	Type    string           `json:"type"`
	Seed    any              `json:"seed,omitempty"`
	Records []map[string]any `json:"records,omitempty"`
	Width   int              `json:"width,omitempty"`
}

type jsonWriter interface {
	WriteJSON(v any) error
}

type client struct {
	conn jsonWriter
	ip   string
	mu   sync.Mutex
}

func (cl *client) send(v any) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteJSON(v)
}

// Limiter meters mutating websocket messages per client IP.
type Limiter interface {
	Allow(key string) bool
}

// WebSocketHandler serves embedding updates. A change made by one client is
// pushed to every connected client.
type WebSocketHandler struct {
	store    *store.Store
	fontSize float64
	limiter  Limiter

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewWebSocketHandler builds the handler. limiter may be nil.
func NewWebSocketHandler(s *store.Store, fontSize float64, limiter Limiter) *WebSocketHandler {
	return &WebSocketHandler{
		store:    s,
		fontSize: fontSize,
		limiter:  limiter,
		clients:  make(map[*client]struct{}),
	}
}

// HandleConnection reads on its own goroutine so a disconnect cancels the
// context of a re-embed that is still running.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	cl := &client{conn: c, ip: remoteIP(c.RemoteAddr())}
	h.register(cl)
	logger.Info("WebSocket connection established", zap.String("remote", c.RemoteAddr().String()))

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan Message)
	readerDone := make(chan struct{})

	defer func() {
		cancel()
		h.unregister(cl)
		c.Close()
		<-readerDone
		logger.Info("WebSocket connection closed")
	}()

	if snap := h.store.Snapshot(); snap != nil {
		if err := cl.send(embeddingMessage(snap)); err != nil {
			close(readerDone)
			return
		}
	}

	go readMessages(ctx, cancel, c, msgs, readerDone)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			if err := h.handle(ctx, cl, msg); err != nil {
				logger.Error("Failed to write WebSocket message", zap.Error(err))
				return
			}
		}
	}
}

func readMessages(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, out chan<- Message, done chan<- struct{}) {
	defer close(done)
	defer cancel()
	for {
		var msg Message
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) handle(ctx context.Context, cl *client, msg Message) error {
	switch msg.Type {
	case "seed", "table", "reset":
		if h.limiter != nil && !h.limiter.Allow(cl.ip) {
			metrics.RateLimitedTotal.WithLabelValues("/ws").Inc()
			return cl.send(map[string]any{
				"type":  "error",
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
	}

	var (
		snap *store.Snapshot
		err  error
	)
	switch msg.Type {
	case "get":
		snap = h.store.Snapshot()
		if snap == nil {
			err = store.ErrNotInitialized
		}
	case "chart":
		snap = h.store.Snapshot()
		if snap == nil {
			return cl.send(errorMessage(store.ErrNotInitialized))
		}
		return cl.send(map[string]any{
			"type":  "chart",
			"chart": chart.Build(snap, msg.Width, h.fontSize),
		})
	case "seed":
		snap, err = h.store.ReembedWithSeed(ctx, seedString(msg.Seed))
	case "table":
		snap, err = h.store.ReembedWithTable(ctx, msg.Records)
	case "reset":
		snap, err = h.store.Reset(ctx)
	default:
		return cl.send(map[string]any{
			"type":  "error",
			"error": "unknown message type " + msg.Type,
		})
	}
	if err != nil {
		return cl.send(errorMessage(err))
	}

	if msg.Type == "get" {
		return cl.send(embeddingMessage(snap))
	}
	h.broadcast(embeddingMessage(snap))
	return nil
}

func (h *WebSocketHandler) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.WebSocketClients.Inc()
}

func (h *WebSocketHandler) unregister(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	metrics.WebSocketClients.Dec()
}

func (h *WebSocketHandler) broadcast(v any) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	for _, cl := range targets {
		if err := cl.send(v); err != nil {
			logger.Warn("Failed to broadcast embedding", zap.Error(err))
		}
	}
}

func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func embeddingMessage(snap *store.Snapshot) map[string]any {
	return map[string]any{
		"type":      "embedding",
		"embedding": snap,
	}
}

func errorMessage(err error) map[string]any {
	msg := "Failed to compute embedding"
	var seedErr *store.InvalidSeedError
	if errors.As(err, &seedErr) || errors.Is(err, store.ErrNotInitialized) {
		msg = err.Error()
	} else {
		logger.Error("WebSocket request failed", zap.Error(err))
	}
	return map[string]any{
		"type":  "error",
		"error": msg,
	}
}
