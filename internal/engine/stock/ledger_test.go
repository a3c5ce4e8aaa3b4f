package stock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(i int64) *int64 {
	return &i
}

func TestLedger_TryDecrement_Finite(t *testing.T) {
	l := NewLedger()
	l.Publish("entry_a", int64Ptr(2))

	assert.True(t, l.TryDecrement("entry_a"))
	assert.True(t, l.TryDecrement("entry_a"))
	assert.False(t, l.TryDecrement("entry_a"), "third decrement must fail at zero")

	remaining, ok := l.Remaining("entry_a")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(0), *remaining)
}

func TestLedger_TryDecrement_Unlimited(t *testing.T) {
	l := NewLedger()
	l.Publish("entry_b", nil)

	for i := 0; i < 1000; i++ {
		assert.True(t, l.TryDecrement("entry_b"))
	}

	remaining, ok := l.Remaining("entry_b")
	require.True(t, ok)
	assert.Nil(t, remaining, "unlimited entries report nil remaining")
}

func TestLedger_TryDecrement_UnknownEntry(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.TryDecrement("missing"))
}

func TestLedger_InStock(t *testing.T) {
	l := NewLedger()
	l.Publish("finite", int64Ptr(1))
	l.Publish("empty", int64Ptr(0))
	l.Publish("endless", nil)

	assert.True(t, l.InStock("finite"))
	assert.False(t, l.InStock("empty"), "zero stock is absent from the distribution")
	assert.True(t, l.InStock("endless"))
	assert.False(t, l.InStock("missing"))

	require.True(t, l.TryDecrement("finite"))
	assert.False(t, l.InStock("finite"), "exhausted entry must vanish immediately")
}

func TestLedger_Restock(t *testing.T) {
	l := NewLedger()
	l.Publish("entry", int64Ptr(0))

	assert.False(t, l.TryDecrement("entry"))

	l.Restock("entry", 3)
	assert.True(t, l.TryDecrement("entry"))

	remaining, ok := l.Remaining("entry")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(2), *remaining)

	// Negative and zero deltas are ignored.
	l.Restock("entry", 0)
	l.Restock("entry", -5)
	remaining, _ = l.Remaining("entry")
	assert.Equal(t, int64(2), *remaining)
}

func TestLedger_Publish_OverwritesCounter(t *testing.T) {
	l := NewLedger()
	l.Publish("entry", int64Ptr(5))
	require.True(t, l.TryDecrement("entry"))

	// Admin republish is last-write-wins.
	l.Publish("entry", int64Ptr(10))
	remaining, ok := l.Remaining("entry")
	require.True(t, ok)
	assert.Equal(t, int64(10), *remaining)

	l.Publish("entry", nil)
	remaining, ok = l.Remaining("entry")
	require.True(t, ok)
	assert.Nil(t, remaining)
}

func TestLedger_Forget(t *testing.T) {
	l := NewLedger()
	l.Publish("entry", int64Ptr(5))
	l.Forget("entry")

	_, ok := l.Remaining("entry")
	assert.False(t, ok)
	assert.False(t, l.TryDecrement("entry"))
}

// TestLedger_ConcurrentDecrement verifies the core allocation invariant:
// with S units of stock and C > S concurrent consumers, exactly S succeed
// and the counter ends at zero, never negative.
func TestLedger_ConcurrentDecrement(t *testing.T) {
	const (
		initialStock = 100
		workers      = 500
	)

	l := NewLedger()
	l.Publish("flash_sale", int64Ptr(initialStock))

	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.TryDecrement("flash_sale")
		}()
	}

	wg.Wait()
	close(results)

	var successes int
	for ok := range results {
		if ok {
			successes++
		}
	}

	assert.Equal(t, initialStock, successes, "exactly S of C decrements may succeed")

	remaining, ok := l.Remaining("flash_sale")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(0), *remaining, "counter must end at exactly zero")
}

// TestLedger_ConcurrentRestockAndDecrement verifies that an admin restock
// racing live decrements never exposes a negative counter.
func TestLedger_ConcurrentRestockAndDecrement(t *testing.T) {
	l := NewLedger()
	l.Publish("entry", int64Ptr(10))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.TryDecrement("entry")
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Restock("entry", 2)
		}()
	}
	wg.Wait()

	remaining, ok := l.Remaining("entry")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.GreaterOrEqual(t, *remaining, int64(0), "stock must never go negative")
}
