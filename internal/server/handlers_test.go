package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-seger/polaris-player-2-sub001/internal/config"
	"github.com/mike-seger/polaris-player-2-sub001/internal/coordination"
	"github.com/mike-seger/polaris-player-2-sub001/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		LogLevel:            "error",
		LogFormat:           "text",
		PlayLookahead:       300 * time.Millisecond,
		SeekLookahead:       100 * time.Millisecond,
		SettleDelay:         time.Second,
		CommandTTL:          5 * time.Second,
		MaxConnections:      16,
		MaxConnectionsPerIP: 16,
		ConnRatePerSecond:   1000,
		ConnRateBurst:       1000,
	}
}

// testServer boots the full HTTP surface (without catalog) against a real
// dispatcher and returns a dial function for playback clients.
func testServer(t *testing.T) (*httptest.Server, func() *ws.Conn) {
	t.Helper()

	cfg := testConfig()
	clock := clockwork.NewRealClock()
	registry := session.NewRegistry()
	ledger := coordination.NewLedger(clock, cfg.CommandTTL)
	dispatcher := coordination.NewDispatcher(registry, ledger, clock, coordination.Options{
		PlayLookahead: cfg.PlayLookahead,
		SeekLookahead: cfg.SeekLookahead,
		SettleDelay:   cfg.SettleDelay,
	})
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	srv := NewServer(cfg, dispatcher, nil, nil, clock)
	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return httpServer, dial
}

func readMessage(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_WelcomeOnConnect(t *testing.T) {
	_, dial := testServer(t)
	conn := dial()

	welcome := readMessage(t, conn)
	assert.Equal(t, "welcome", welcome["type"])
	assert.NotEmpty(t, welcome["clientId"])
	assert.NotZero(t, welcome["serverTime"])
}

func TestWebSocket_PlayPropagatesToAllClients(t *testing.T) {
	_, dial := testServer(t)

	connA := dial()
	connB := dial()
	connC := dial()

	welcomeA := readMessage(t, connA)
	readMessage(t, connB)
	readMessage(t, connC)
	senderID := welcomeA["clientId"].(string)

	require.NoError(t, connA.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"client_play","position":42.5}`)))

	for _, conn := range []*ws.Conn{connA, connB, connC} {
		play := readMessage(t, conn)
		assert.Equal(t, "play", play["type"])
		assert.Equal(t, 42.5, play["position"])
		assert.Equal(t, senderID, play["initiatedBy"])
		assert.NotEmpty(t, play["commandId"])
	}
}

func TestWebSocket_SeekSkipsSender(t *testing.T) {
	_, dial := testServer(t)

	connA := dial()
	connB := dial()
	readMessage(t, connA)
	readMessage(t, connB)

	require.NoError(t, connA.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"client_seek","position":10}`)))

	seek := readMessage(t, connB)
	assert.Equal(t, "seek", seek["type"])
	assert.Equal(t, float64(10), seek["position"])

	// The sender gets nothing for its own seek
	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := connA.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_DisconnectedClientSkippedInBroadcast(t *testing.T) {
	_, dial := testServer(t)

	connA := dial()
	connB := dial()
	readMessage(t, connA)
	readMessage(t, connB)

	require.NoError(t, connB.Close())
	// Give the server a moment to observe the close
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, connA.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"client_play","position":1}`)))

	play := readMessage(t, connA)
	assert.Equal(t, "play", play["type"])
}

func TestWebSocket_MalformedFrameKeepsSessionAlive(t *testing.T) {
	_, dial := testServer(t)

	conn := dial()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{broken`)))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"type":"heartbeat"}`)))

	ack := readMessage(t, conn)
	assert.Equal(t, "heartbeat_ack", ack["type"])
}

func TestHealthEndpoints(t *testing.T) {
	httpServer, _ := testServer(t)

	resp, err := http.Get(httpServer.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(httpServer.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersionEndpoint(t *testing.T) {
	httpServer, _ := testServer(t)

	resp, err := http.Get(httpServer.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.NotEmpty(t, info["go_version"])
}

func TestCatalogRoutesAbsentWithoutService(t *testing.T) {
	httpServer, _ := testServer(t)

	resp, err := http.Get(httpServer.URL + "/api/playlist?playlistId=PL1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
