package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.Port)
	assert.Equal(t, 300*time.Millisecond, cfg.PlayLookahead)
	assert.Equal(t, 100*time.Millisecond, cfg.SeekLookahead)
	assert.Equal(t, time.Second, cfg.SettleDelay)
	assert.Equal(t, 5*time.Second, cfg.CommandTTL)
	assert.Equal(t, 24*time.Hour, cfg.PlaylistCacheTTL)
	assert.Empty(t, cfg.YouTubeAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PLAY_LOOKAHEAD_MS", "500")
	t.Setenv("COMMAND_TTL_MS", "10000")
	t.Setenv("MAX_CONNECTIONS", "128")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.PlayLookahead)
	assert.Equal(t, 10*time.Second, cfg.CommandTTL)
	assert.Equal(t, int64(128), cfg.MaxConnections)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric lookahead", "PLAY_LOOKAHEAD_MS", "soon"},
		{"negative lookahead", "SEEK_LOOKAHEAD_MS", "-5"},
		{"zero ttl", "COMMAND_TTL_MS", "0"},
		{"bad max connections", "MAX_CONNECTIONS", "lots"},
		{"negative max connections", "MAX_CONNECTIONS", "-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
