package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	// Command scheduling. Lookaheads give broadcast fan-out and client-side
	// parsing time to finish before the agreed execution instant.
	PlayLookahead time.Duration
	SeekLookahead time.Duration
	SettleDelay   time.Duration
	CommandTTL    time.Duration

	// Connection limits for the WebSocket endpoint.
	MaxConnections      int64
	MaxConnectionsPerIP int
	ConnRatePerSecond   float64
	ConnRateBurst       int

	// Playlist catalog. Empty YouTubeAPIKey disables the catalog routes.
	YouTubeAPIKey    string
	RedisURL         string
	PlaylistCacheTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "5001"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		YouTubeAPIKey:       getEnv("YT_API_KEY", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		MaxConnections:      64,
		MaxConnectionsPerIP: 8,
		ConnRatePerSecond:   10,
		ConnRateBurst:       10,
	}

	var err error
	if cfg.PlayLookahead, err = getDurationMs("PLAY_LOOKAHEAD_MS", 300); err != nil {
		return nil, err
	}
	if cfg.SeekLookahead, err = getDurationMs("SEEK_LOOKAHEAD_MS", 100); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = getDurationMs("SETTLE_DELAY_MS", 1000); err != nil {
		return nil, err
	}
	if cfg.CommandTTL, err = getDurationMs("COMMAND_TTL_MS", 5000); err != nil {
		return nil, err
	}
	if cfg.PlaylistCacheTTL, err = getDurationMs("PLAYLIST_CACHE_TTL_MS", int64(24*time.Hour/time.Millisecond)); err != nil {
		return nil, err
	}

	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_CONNECTIONS must be a positive integer, got %q", v)
		}
		cfg.MaxConnections = n
	}
	if v := os.Getenv("MAX_CONNECTIONS_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_CONNECTIONS_PER_IP must be a positive integer, got %q", v)
		}
		cfg.MaxConnectionsPerIP = n
	}

	if cfg.PlayLookahead < 0 || cfg.SeekLookahead < 0 || cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("lookahead and settle delays must not be negative")
	}
	if cfg.CommandTTL <= 0 {
		return nil, fmt.Errorf("COMMAND_TTL_MS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationMs(key string, defaultMs int64) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defaultMs) * time.Millisecond, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of milliseconds, got %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
