package coordination

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mike-seger/polaris-player-2-sub001/internal/metrics"
)

// Ledger remembers recently issued command ids so that a client re-reporting a
// server-issued command is recognized as an echo, not a new user action.
//
// Every Record schedules its own one-shot removal; there is no sweep goroutine
// and no cleanup call. Memory is therefore bounded by the commands issued in
// the last TTL window, not by uptime.
type Ledger struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]time.Time
}

func NewLedger(clock clockwork.Clock, ttl time.Duration) *Ledger {
	return &Ledger{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

// Record inserts the id and arms its removal at now+TTL. Recording an id that
// is already present refreshes nothing: the original expiry stands, matching
// the invariant that no entry outlives its insertion by more than TTL.
func (l *Ledger) Record(id string) {
	l.mu.Lock()
	if _, exists := l.entries[id]; exists {
		l.mu.Unlock()
		return
	}
	l.entries[id] = l.clock.Now()
	size := len(l.entries)
	l.mu.Unlock()

	metrics.LedgerSize.Set(float64(size))

	l.clock.AfterFunc(l.ttl, func() {
		l.mu.Lock()
		delete(l.entries, id)
		size := len(l.entries)
		l.mu.Unlock()
		metrics.LedgerSize.Set(float64(size))
	})
}

// Contains reports whether the id was recorded within the last TTL.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[id]
	return ok
}

// Len returns the number of live entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
