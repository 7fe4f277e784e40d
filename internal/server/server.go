package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mike-seger/polaris-player-2-sub001/internal/catalog"
	"github.com/mike-seger/polaris-player-2-sub001/internal/config"
	"github.com/mike-seger/polaris-player-2-sub001/internal/coordination"
)

// RedisPinger is the minimal interface for Redis health checks.
type RedisPinger interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	dispatcher *coordination.Dispatcher
	catalog    *catalog.Service
	clock      clockwork.Clock
	limits     *ConnectionLimits
	redisPing  RedisPinger
	startTime  time.Time
}

// NewServer wires the HTTP surface: the WebSocket endpoint for playback
// clients, health/metrics endpoints and the playlist catalog routes.
// catalogSvc and redisPing may be nil when those features are not configured.
func NewServer(cfg *config.Config, dispatcher *coordination.Dispatcher, catalogSvc *catalog.Service, redisPing RedisPinger, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:       e,
		config:     cfg,
		dispatcher: dispatcher,
		catalog:    catalogSvc,
		clock:      clock,
		limits:     NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnRatePerSecond, cfg.ConnRateBurst),
		redisPing:  redisPing,
		startTime:  clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
