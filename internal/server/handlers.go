// Package server exposes the HTTP surface of the relay: the WebSocket
// upgrade endpoint, the health check, and metrics.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// App bundles the relay's service objects behind the HTTP handlers. All of
// them are injected at construction; there is no package-level state, so
// tests can spin up fully isolated instances.
type App struct {
	Config   *Config
	Hub      *Hub
	Metrics  *Metrics
	upgrader websocket.Upgrader
}

// NewApp wires the handlers to their collaborators and builds the upgrader
// with the configured origin policy.
func NewApp(cfg *Config, hub *Hub, metrics *Metrics) *App {
	policy := newOriginPolicy(hub.log, cfg.AllowedOrigins)
	return &App{
		Config:  cfg,
		Hub:     hub,
		Metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
	}
}

// WebSocketHandler upgrades the HTTP connection and registers the resulting
// client with the hub, which launches the pump goroutines.
func (a *App) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Hub.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, a.Hub, r.RemoteAddr, *a.Config)
	a.Hub.register <- client
}

// HealthHandler reports that the process is up.
func (a *App) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "PinChat relay is running!")
}
