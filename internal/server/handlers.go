package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mike-seger/polaris-player-2-sub001/internal/broadcast"
	"github.com/mike-seger/polaris-player-2-sub001/internal/catalog"
	"github.com/mike-seger/polaris-player-2-sub001/internal/metrics"
	"github.com/mike-seger/polaris-player-2-sub001/internal/version"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Playback clients run from arbitrary local origins (file://, localhost
	// ports); no origin restriction.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket accepts one playback client: limiter checks, upgrade,
// register with the dispatcher, then pump inbound frames until disconnect.
func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	allowed, reason := s.limits.Acquire(ip)
	if !allowed {
		metrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
		slog.Warn("Rejecting connection", "ip", ip, "reason", reason)
		if reason == LimitReasonRate {
			return c.String(http.StatusTooManyRequests, "Too many connection attempts")
		}
		return c.String(http.StatusServiceUnavailable, "Server at capacity")
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "ip", ip, "error", err)
		return nil
	}

	writer := broadcast.NewClientWriter(conn, s.clock)
	sessionID := s.dispatcher.Connect(writer)
	if sessionID == "" {
		// Dispatcher is shutting down.
		writer.Stop()
		return nil
	}

	// Read pump. Per-message errors never tear down the session; only a
	// transport-level read error ends it.
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.dispatcher.Dispatch(sessionID, data)
	}

	s.dispatcher.Disconnect(sessionID)
	writer.Stop()
	return nil
}

func (s *Server) handlePlaylist(c echo.Context) error {
	raw := c.QueryParam("playlistId")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "playlistId required"})
	}
	force := c.QueryParam("forceRefresh") == "1"

	result, err := s.catalog.Lookup(c.Request().Context(), raw, force)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, playlistResponse(result))
}

func (s *Server) handleCacheInfo(c echo.Context) error {
	all, err := s.catalog.CacheInfo(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, all)
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}

func playlistResponse(result *catalog.Result) map[string]any {
	resp := map[string]any{
		"playlistId": result.Entry.PlaylistID,
		"fetchedAt":  result.Entry.FetchedAt,
		"items":      result.Entry.Items,
		"fromCache":  result.FromCache,
	}
	if result.Stale {
		resp["stale"] = true
	}
	return resp
}
