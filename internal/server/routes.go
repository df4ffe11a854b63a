// Package server wires HTTP handlers into a ServeMux for the relay.
package server

import "net/http"

// SetupRoutes configures and returns the application's ServeMux: health
// check at the root, the WebSocket endpoint, and Prometheus metrics.
func (a *App) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.HealthHandler)
	mux.HandleFunc("/ws", a.WebSocketHandler)
	mux.Handle("/metrics", a.Metrics.Handler())
	return mux
}
