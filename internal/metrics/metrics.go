package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Synchronization core metrics
var (
	// ConnectedClients tracks the number of live playback sessions
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_connected_clients",
			Help: "Number of connected playback clients",
		},
	)

	// BroadcastsTotal tracks commands broadcast to clients by kind
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_broadcasts_total",
			Help: "Commands broadcast to clients by kind (play/pause/seek)",
		},
		[]string{"kind"},
	)

	// EchoesSuppressed tracks inbound events discarded as loopback echoes
	EchoesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_echoes_suppressed_total",
			Help: "Client events discarded because their command id was recently issued by the server",
		},
	)

	// MalformedMessages tracks inbound frames that failed to decode
	MalformedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_malformed_messages_total",
			Help: "Inbound frames discarded as malformed",
		},
	)

	// SendsDropped tracks per-recipient delivery failures during fan-out
	SendsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_sends_dropped_total",
			Help: "Outbound frames dropped because a recipient was unreachable",
		},
	)

	// LedgerSize tracks live command ledger entries
	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_command_ledger_size",
			Help: "Command ids currently held in the echo-detection ledger",
		},
	)
)

// Connection limit metrics
var (
	// ConnectionsRejected tracks upgrade attempts refused by a limiter
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_connections_rejected_total",
			Help: "WebSocket upgrades rejected by reason (global_limit/per_ip_limit/rate_limit)",
		},
		[]string{"reason"},
	)
)

// Playlist catalog metrics
var (
	// CatalogCacheHits tracks playlist lookups served from cache by source
	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Playlist lookups served from cache by source (fresh/stale)",
		},
		[]string{"source"},
	)

	// CatalogCacheMisses tracks playlist lookups that went upstream
	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Playlist lookups that required an upstream fetch",
		},
	)

	// CatalogUpstreamErrors tracks failed playlist fetches
	CatalogUpstreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_upstream_errors_total",
			Help: "Failed playlist fetches from the upstream API",
		},
	)
)
