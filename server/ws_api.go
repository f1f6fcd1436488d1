package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gridpilot-labs/gridpilot-go/internal/ws"
)

type wsAPI struct {
	logger   *slog.Logger
	registry *ws.Registry
	factory  ws.Factory
	pacing   time.Duration
	upgrader websocket.Upgrader
}

func newWSAPI(logger *slog.Logger, registry *ws.Registry, factory ws.Factory, pacing time.Duration) *wsAPI {
	return &wsAPI{
		logger:   logger,
		registry: registry,
		factory:  factory,
		pacing:   pacing,
		upgrader: websocket.Upgrader{
			// The UI is served from arbitrary local origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (api *wsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", api.handleWS)
}

// handleWS owns one connection end to end: its registry entry, its
// session, and its read loop.
func (api *wsAPI) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	api.registry.Register(connID, newWSChannel(conn))
	session := ws.NewSession(connID, api.registry, api.factory, api.pacing, api.logger)
	api.registry.SendTo(connID, ws.NewMessage(ws.TypeStatus, ws.StatusPayload{
		Status:  "idle",
		Message: "Connected. Ready to start.",
	}))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			api.logger.Info("websocket closed", "connection_id", connID, "error", err)
			break
		}
		session.HandleMessage(r.Context(), data)
	}

	session.Disconnect()
	_ = conn.Close()
}

// wsChannel adapts one websocket connection to the registry. Writes are
// serialized; gorilla connections allow only one concurrent writer.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{conn: conn}
}

func (c *wsChannel) SendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}
