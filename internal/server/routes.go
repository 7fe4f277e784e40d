package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Playback synchronization endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// Playlist catalog (absent when no API key is configured)
	if s.catalog != nil {
		s.echo.GET("/api/playlist", s.handlePlaylist)
		s.echo.GET("/api/cache-info", s.handleCacheInfo)
	}
}
