package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp stands up a full relay instance on an httptest server.
func newTestApp(t *testing.T, store FilterStore) (*App, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.GlobalAdminPassword = "hunter2"
	// Generous burst so test traffic never trips the limiter.
	cfg.RateLimit.Burst = 100

	logger := discardLogger()
	metrics := NewMetrics()
	router := NewRouter(logger, NewRegistry(), store, metrics, cfg.GlobalAdminPassword)
	router.LoadFilterData()

	hub := NewHub(logger, router, metrics)
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(2 * time.Second) })

	app := NewApp(cfg, hub, metrics)
	ts := httptest.NewServer(app.SetupRoutes())
	t.Cleanup(ts.Close)

	return app, ts
}

// wsClient wraps one websocket connection. Every frame read must decode as
// exactly one JSON object, which is what browser clients do with a single
// JSON.parse per frame.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {ts.URL}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(v any) {
	c.t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, raw))
}

func (c *wsClient) next() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err, "waiting for frame")
	var m map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &m), "frame does not hold a single JSON object: %s", raw)
	return m
}

// nextOfType discards frames until one of the wanted type arrives.
func (c *wsClient) nextOfType(kind string) map[string]any {
	c.t.Helper()
	for i := 0; i < 20; i++ {
		m := c.next()
		if m["type"] == kind {
			return m
		}
	}
	c.t.Fatalf("no frame of type %q arrived", kind)
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "running")
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pinchat_active_connections")
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	resp, err := http.Post(ts.URL+"/ws", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketUpgradeBlockedForBadOrigin(t *testing.T) {
	app, ts := newTestApp(t, &fakeStore{})
	app.upgrader.CheckOrigin = newOriginPolicy(discardLogger(), []string{"http://localhost:8080"}).checkOrigin

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {"http://evil.example.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestChatSessionOverWebSocket(t *testing.T) {
	store := &fakeStore{data: FilterData{Swears: []string{"darn"}}}
	_, ts := newTestApp(t, store)

	alice := dialWS(t, ts)
	alice.send(map[string]any{"type": "join", "room": "4242", "name": "Alice", "message": "Alice has joined"})

	status := alice.nextOfType("adminStatus")
	assert.Equal(t, true, status["isAdmin"])
	assert.Equal(t, "Alice", status["adminName"])
	assert.Equal(t, "none", alice.nextOfType("roomSettings")["profanityFilter"])
	assert.Equal(t, []any{"Alice"}, alice.nextOfType("userList")["users"])
	ack := alice.nextOfType("join")
	assert.Equal(t, true, ack["isYou"])

	bob := dialWS(t, ts)
	bob.send(map[string]any{"type": "join", "room": "4242", "name": "Bob", "message": "Bob has joined"})

	// Bob replays Alice's join from history before his own status frames.
	replay := bob.nextOfType("join")
	assert.Equal(t, "Alice", replay["name"])
	assert.Equal(t, false, bob.nextOfType("adminStatus")["isAdmin"])
	assert.Equal(t, "none", bob.nextOfType("roomSettings")["profanityFilter"])
	assert.ElementsMatch(t, []any{"Alice", "Bob"}, bob.nextOfType("userList")["users"])
	assert.Equal(t, true, bob.nextOfType("join")["isYou"])

	// Alice sees the refreshed roster and Bob's arrival.
	assert.ElementsMatch(t, []any{"Alice", "Bob"}, alice.nextOfType("userList")["users"])
	assert.Equal(t, "Bob", alice.nextOfType("join")["name"])

	// Room admin turns on the swears filter; the whole room hears it.
	alice.send(map[string]any{"type": "updateProfanityFilter", "filterLevel": "swears"})
	assert.Equal(t, "swears", alice.nextOfType("roomSettings")["profanityFilter"])
	assert.Equal(t, "swears", bob.nextOfType("roomSettings")["profanityFilter"])

	// Bob's chat arrives masked at Alice and is never echoed to Bob.
	bob.send(map[string]any{"type": "message", "name": "Bob", "message": "darn it"})
	msg := alice.nextOfType("message")
	assert.Equal(t, "**** it", msg["message"])
	assert.Equal(t, true, msg["filtered"])

	alice.send(map[string]any{"type": "message", "name": "Alice", "message": "language!"})
	reply := bob.nextOfType("message")
	assert.Equal(t, "language!", reply["message"])

	// Bob disconnects; Alice observes the leave notice and shrunken roster.
	require.NoError(t, bob.conn.Close())
	leave := alice.nextOfType("leave")
	assert.Equal(t, "Bob has left the chat", leave["message"])
	assert.Equal(t, []any{"Alice"}, alice.nextOfType("userList")["users"])
}

func TestHistoryReplayOneObjectPerFrame(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	alice := dialWS(t, ts)
	alice.send(map[string]any{"type": "join", "room": "7777", "name": "Alice"})
	assert.Equal(t, true, alice.nextOfType("join")["isYou"])

	for i := 0; i < 20; i++ {
		alice.send(map[string]any{"type": "message", "name": "Alice", "message": fmt.Sprintf("line %d", i)})
	}

	// Bob's join queues the whole history replay into his send buffer at
	// once; every chat line must still arrive as its own text frame.
	bob := dialWS(t, ts)
	bob.send(map[string]any{"type": "join", "room": "7777", "name": "Bob"})

	seen := 0
	for seen < 20 {
		m := bob.next()
		body, _ := m["message"].(string)
		if m["type"] == MessageChat && strings.HasPrefix(body, "line ") {
			seen++
		}
	}
}

func TestKickOverWebSocket(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	alice := dialWS(t, ts)
	alice.send(map[string]any{"type": "join", "room": "9999", "name": "Alice"})
	alice.nextOfType("userList")

	bob := dialWS(t, ts)
	bob.send(map[string]any{"type": "join", "room": "9999", "name": "Bob"})
	bob.nextOfType("userList")

	alice.send(map[string]any{"type": "kickUser", "userName": "Bob"})

	kicked := bob.nextOfType("kicked")
	assert.Equal(t, "You have been kicked from room 9999", kicked["message"])

	// The transport is force-closed after the notice; reads fail from here.
	require.NoError(t, bob.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < 10; i++ {
		if _, _, err := bob.conn.ReadMessage(); err != nil {
			return
		}
	}
	t.Fatal("kicked connection was not closed")
}

func TestGlobalAdminLoginOverWebSocket(t *testing.T) {
	store := &fakeStore{data: FilterData{Swears: []string{"darn"}, Slurs: []string{"jerkface"}}}
	_, ts := newTestApp(t, store)

	admin := dialWS(t, ts)
	admin.send(map[string]any{"type": "globalAdminLogin", "password": "hunter2"})

	status := admin.nextOfType("globalAdminStatus")
	require.Equal(t, true, status["isGlobalAdmin"])
	data := status["filterData"].(map[string]any)
	assert.Equal(t, []any{"darn"}, data["swears"])

	intruder := dialWS(t, ts)
	intruder.send(map[string]any{"type": "globalAdminLogin", "password": "guess"})

	denied := intruder.nextOfType("globalAdminStatus")
	assert.Equal(t, false, denied["isGlobalAdmin"])
	assert.Equal(t, "Invalid password", denied["error"])
}

func TestUnknownTypeOverWebSocket(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	client := dialWS(t, ts)
	client.send(map[string]any{"type": "teleport"})

	assert.Equal(t, "Unknown message type: teleport", client.nextOfType("error")["message"])
}

func TestMalformedFrameOverWebSocket(t *testing.T) {
	_, ts := newTestApp(t, &fakeStore{})

	client := dialWS(t, ts)
	require.NoError(t, client.conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	assert.Equal(t, "Invalid message format", client.nextOfType("error")["message"])
}
