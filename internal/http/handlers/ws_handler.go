package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/defi-staking/gateway/internal/auth"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WSHub pushes auth lifecycle events to connected dashboard tabs.
type WSHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:        cfg,
		subscriber: subscriber,
		log:        log,
		conns:      make(map[*websocket.Conn]struct{}),
	}
}

// Start consumes the auth event stream until ctx is cancelled.
func (h *WSHub) Start(ctx context.Context) {
	ch, cancel, err := h.subscriber.Subscribe(ctx, events.StreamAuth)
	if err != nil {
		h.log.Error("auth event subscription failed", zap.Error(err))
		return
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				h.broadcast(ev)
			}
		}
	}()
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.conns {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	if _, err := auth.ParseJWT(tokenStr, h.cfg.JWTSecret); err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
