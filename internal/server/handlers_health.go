package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  uptime,
		"clients": len(s.dispatcher.Sessions()),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	// The sync core is purely in-memory; only the optional Redis-backed
	// playlist cache has an external dependency to verify.
	if s.redisPing != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.redisPing.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": "redis",
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
