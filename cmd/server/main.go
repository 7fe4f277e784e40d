package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mike-seger/polaris-player-2-sub001/internal/admin"
	"github.com/mike-seger/polaris-player-2-sub001/internal/catalog"
	"github.com/mike-seger/polaris-player-2-sub001/internal/config"
	"github.com/mike-seger/polaris-player-2-sub001/internal/coordination"
	"github.com/mike-seger/polaris-player-2-sub001/internal/logging"
	"github.com/mike-seger/polaris-player-2-sub001/internal/server"
	"github.com/mike-seger/polaris-player-2-sub001/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	clock := clockwork.NewRealClock()

	// Synchronization core
	registry := session.NewRegistry()
	ledger := coordination.NewLedger(clock, cfg.CommandTTL)
	dispatcher := coordination.NewDispatcher(registry, ledger, clock, coordination.Options{
		PlayLookahead: cfg.PlayLookahead,
		SeekLookahead: cfg.SeekLookahead,
		SettleDelay:   cfg.SettleDelay,
	})
	dispatcher.Start()

	// Optional playlist catalog
	catalogSvc, redisClient := initCatalog(cfg, clock)

	// A typed nil *goredis.Client must not reach the RedisPinger interface.
	var redisPing server.RedisPinger
	if redisClient != nil {
		redisPing = redisClient
	}
	srv := server.NewServer(cfg, dispatcher, catalogSvc, redisPing, clock)

	// Operator console on stdin; exits quietly when stdin closes.
	console := admin.NewConsole(dispatcher, os.Stdin, os.Stdout)
	go console.Run()

	done := runGracefulShutdown(srv, dispatcher, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}

// initCatalog builds the playlist catalog when an API key is configured,
// backed by Redis when REDIS_URL is set and an in-memory cache otherwise.
func initCatalog(cfg *config.Config, clock clockwork.Clock) (*catalog.Service, *goredis.Client) {
	if cfg.YouTubeAPIKey == "" {
		slog.Info("No YouTube API key configured, playlist catalog disabled")
		return nil, nil
	}

	var store catalog.Store
	var redisClient *goredis.Client

	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = goredis.NewClient(opts)
		store = catalog.NewRedisStore(redisClient)
		slog.Info("Playlist catalog using Redis cache")
	} else {
		store = catalog.NewMemoryStore()
		slog.Info("Playlist catalog using in-memory cache")
	}

	fetcher := catalog.NewYouTubeClient(cfg.YouTubeAPIKey)
	return catalog.NewService(store, fetcher, clock, cfg.PlaylistCacheTTL), redisClient
}

func runGracefulShutdown(srv *server.Server, dispatcher *coordination.Dispatcher, redisClient *goredis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		dispatcher.Stop()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Redis close error", "error", err)
			}
		}

		close(done)
	}()

	return done
}
