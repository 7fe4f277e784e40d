package coordination

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Second

func TestLedger_RecordThenContains(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock, testTTL)

	ledger.Record("cmd_1")

	assert.True(t, ledger.Contains("cmd_1"))
	assert.False(t, ledger.Contains("cmd_2"))
}

func TestLedger_EntryExpiresWithoutCleanupCall(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock, testTTL)

	ledger.Record("cmd_1")
	require.True(t, ledger.Contains("cmd_1"))

	// Just short of TTL the entry must still be there
	clock.Advance(testTTL - time.Millisecond)
	assert.True(t, ledger.Contains("cmd_1"))

	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool {
		return !ledger.Contains("cmd_1")
	}, time.Second, time.Millisecond, "entry should expire once TTL elapsed")
}

func TestLedger_EntriesExpireIndependently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock, testTTL)

	ledger.Record("cmd_early")
	clock.Advance(3 * time.Second)
	ledger.Record("cmd_late")

	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool {
		return !ledger.Contains("cmd_early")
	}, time.Second, time.Millisecond)
	assert.True(t, ledger.Contains("cmd_late"))

	clock.Advance(3 * time.Second)
	assert.Eventually(t, func() bool {
		return !ledger.Contains("cmd_late")
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, ledger.Len())
}

func TestLedger_ReRecordDoesNotExtendExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock, testTTL)

	ledger.Record("cmd_1")
	clock.Advance(4 * time.Second)
	ledger.Record("cmd_1")

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return !ledger.Contains("cmd_1")
	}, time.Second, time.Millisecond, "original expiry must stand")
}

func TestLedger_BoundedByTTLWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock, testTTL)

	for i := 0; i < 100; i++ {
		ledger.Record(fmt.Sprintf("cmd_%d", i))
		clock.Advance(100 * time.Millisecond)
	}

	// 100 inserts over 10s with a 5s TTL: only the last window survives
	assert.Eventually(t, func() bool {
		return ledger.Len() <= 50
	}, time.Second, time.Millisecond)
	assert.True(t, ledger.Contains("cmd_99"))
	assert.False(t, ledger.Contains("cmd_0"))
}
