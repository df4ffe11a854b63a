// Package server coordinates connection registration, inbound dispatch, and
// disconnect cleanup through the Hub. The hub funnels every inbound frame
// and every close notification through a single event loop, so all room and
// session mutations are serialized: message handling and disconnect cleanup
// for the same session can never interleave, and cleanup runs exactly once.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// inboundFrame pairs a raw frame with the connection it arrived on.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// Hub owns the set of live connections and their sessions, and drives the
// router from its event loop.
type Hub struct {
	log     *slog.Logger
	router  *Router
	metrics *Metrics

	mutex    sync.RWMutex
	sessions map[*Client]*Session

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub bound to the given router. Run must be started in its
// own goroutine before connections are registered.
func NewHub(log *slog.Logger, router *Router, metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		router:     router,
		metrics:    metrics,
		sessions:   make(map[*Client]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It handles registration, inbound frames, and
// disconnects one at a time until Shutdown cancels it.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("nil client registration, skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case frame := <-h.inbound:
			h.handleInbound(frame)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	sess := NewSession(client)

	h.mutex.Lock()
	h.sessions[client] = sess
	count := len(h.sessions)
	h.mutex.Unlock()

	h.log.Info("client registered", "addr", client.addr, "session", sess.ID(), "total", count)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(count))
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleUnregister tears a connection down. The session lookup doubles as
// the exactly-once guard: a second unregister for the same client finds no
// session and does nothing.
func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	sess, ok := h.sessions[client]
	if !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.sessions, client)
	count := len(h.sessions)
	h.mutex.Unlock()

	client.closeSend()
	h.router.HandleDisconnect(sess)

	h.log.Info("client unregistered", "addr", client.addr, "session", sess.ID(), "total", count)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(count))
	}
}

func (h *Hub) handleInbound(frame inboundFrame) {
	h.mutex.RLock()
	sess, ok := h.sessions[frame.client]
	h.mutex.RUnlock()
	if !ok {
		// Frame raced with the connection's own teardown; the peer is gone.
		return
	}

	ev, err := ParseInbound(frame.payload)
	if err != nil {
		h.log.Warn("malformed frame", "addr", frame.client.addr, "err", err)
		frame.client.Send(mustEncode(newError("Invalid message format")))
		return
	}

	h.router.HandleEvent(sess, ev)
}

// mustEncode is for frames built entirely from server-side values, where a
// marshal failure is a programming error.
func mustEncode(ev OutboundEvent) []byte {
	raw, err := EncodeEvent(ev)
	if err != nil {
		panic(err)
	}
	return raw
}

// shutdownClients force-closes every live transport so the pumps drain out.
func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for client := range h.sessions {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("close client connection", "addr", client.addr, "err", err)
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown cancels the event loop and waits for all client goroutines to
// finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("hub shutdown initiated")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
