package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/mike-seger/polaris-player-2-sub001/internal/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// Service answers playlist lookups with read-through caching: cache hit →
// upstream fetch → stale fallback. Concurrent lookups for the same playlist
// collapse into one upstream call, and a circuit breaker keeps a failing
// upstream from being hammered.
type Service struct {
	store   Store
	fetcher Fetcher
	clock   clockwork.Clock
	ttl     time.Duration
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker
}

func NewService(store Store, fetcher Fetcher, clock clockwork.Clock, ttl time.Duration) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "youtube",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Upstream circuit breaker state change",
				"component", name, "from", from.String(), "to", to.String())
		},
	})

	return &Service{
		store:   store,
		fetcher: fetcher,
		clock:   clock,
		ttl:     ttl,
		breaker: breaker,
	}
}

// Lookup resolves raw (id or share URL) and returns the playlist, preferring
// a fresh cached copy unless forceRefresh is set. When the upstream fails, a
// stale cached copy is served instead of an error.
func (s *Service) Lookup(ctx context.Context, raw string, forceRefresh bool) (*Result, error) {
	id := ResolvePlaylistID(raw)

	if !forceRefresh {
		entry, err := s.store.Get(ctx, id)
		if err == nil && s.isFresh(entry) {
			metrics.CatalogCacheHits.WithLabelValues("fresh").Inc()
			return &Result{Entry: entry, FromCache: true}, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			slog.Warn("Playlist cache read failed, falling through to upstream",
				"playlist_id", id, "error", err)
		}
	}

	metrics.CatalogCacheMisses.Inc()

	value, err, _ := s.group.Do(id, func() (any, error) {
		return s.breaker.Execute(func() (any, error) {
			return s.fetcher.FetchPlaylist(ctx, id)
		})
	})
	if err != nil {
		metrics.CatalogUpstreamErrors.Inc()

		// Upstream down: a stale copy beats no copy.
		if stale, staleErr := s.store.Get(ctx, id); staleErr == nil {
			metrics.CatalogCacheHits.WithLabelValues("stale").Inc()
			slog.Warn("Serving stale playlist after upstream failure",
				"playlist_id", id, "error", err)
			return &Result{Entry: stale, FromCache: true, Stale: true}, nil
		}
		return nil, err
	}

	entry := &Entry{
		PlaylistID: id,
		FetchedAt:  s.clock.Now(),
		Items:      value.([]Track),
	}
	if err := s.store.Put(ctx, id, entry); err != nil {
		// Cache write is best-effort; the fetched data is still good.
		slog.Warn("Failed to cache playlist", "playlist_id", id, "error", err)
	}
	return &Result{Entry: entry}, nil
}

// CacheInfo dumps every cached entry for the diagnostics endpoint.
func (s *Service) CacheInfo(ctx context.Context) (map[string]*Entry, error) {
	return s.store.All(ctx)
}

func (s *Service) isFresh(entry *Entry) bool {
	return s.clock.Since(entry.FetchedAt) <= s.ttl
}
