package configstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestbox/reward-engine/internal/engine/stock"
	"github.com/contestbox/reward-engine/internal/model"
)

func int64Ptr(i int64) *int64 { return &i }

func testPool(id string, active bool) *model.PrizePool {
	return &model.PrizePool{ID: id, Name: id, CostPoints: 10, IsActive: active}
}

func testEntry(id string, weight float64, stockVal *int64) *model.PrizeEntry {
	return &model.PrizeEntry{
		ID:        id,
		PoolID:    "pool_1",
		Name:      id,
		Kind:      model.KindNothing,
		Weight:    weight,
		Stock:     stockVal,
		IsEnabled: true,
	}
}

func TestStore_UpsertPool_PublishesStock(t *testing.T) {
	ledger := stock.NewLedger()
	store := NewStore(ledger)

	err := store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 70, int64Ptr(1)),
		testEntry("entry_b", 30, nil),
	})
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, uint64(1), snap.Version)
	require.NotNil(t, snap.Pool("pool_1"))
	assert.Len(t, snap.Entries("pool_1"), 2)

	remaining, ok := ledger.Remaining("entry_a")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(1), *remaining)

	remaining, ok = ledger.Remaining("entry_b")
	require.True(t, ok)
	assert.Nil(t, remaining, "nil stock publishes an unlimited counter")
}

func TestStore_UpsertPool_RejectsZeroTotalWeight(t *testing.T) {
	store := NewStore(stock.NewLedger())

	err := store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 0, nil),
	})
	assert.ErrorIs(t, err, ErrInconsistent)

	// The failed write must not have been published.
	assert.Nil(t, store.Snapshot().Pool("pool_1"))
}

func TestStore_UpsertPool_RejectsNegativeWeight(t *testing.T) {
	store := NewStore(stock.NewLedger())

	err := store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", -1, nil),
		testEntry("entry_b", 10, nil),
	})
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestStore_UpsertPool_SoldOutEntriesCarryNoMass(t *testing.T) {
	store := NewStore(stock.NewLedger())

	// Only entry has configured stock 0: active pool has no drawable mass.
	err := store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 100, int64Ptr(0)),
	})
	assert.ErrorIs(t, err, ErrInconsistent)

	// An inactive pool may hold the same configuration.
	err = store.UpsertPool(testPool("pool_1", false), []*model.PrizeEntry{
		testEntry("entry_a", 100, int64Ptr(0)),
	})
	assert.NoError(t, err)
}

func TestStore_UpsertEntry_DoesNotResetUnchangedStock(t *testing.T) {
	ledger := stock.NewLedger()
	store := NewStore(ledger)

	require.NoError(t, store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 50, int64Ptr(5)),
	}))

	// Simulate live draws consuming stock.
	require.True(t, ledger.TryDecrement("entry_a"))
	require.True(t, ledger.TryDecrement("entry_a"))

	// Weight-only edit keeps the configured stock value: live counter stays.
	updated := testEntry("entry_a", 90, int64Ptr(5))
	require.NoError(t, store.UpsertEntry("pool_1", updated))

	remaining, ok := ledger.Remaining("entry_a")
	require.True(t, ok)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(3), *remaining, "unrelated edit must not reset the live counter")

	// An explicit stock change is a deliberate reset.
	require.NoError(t, store.UpsertEntry("pool_1", testEntry("entry_a", 90, int64Ptr(10))))
	remaining, _ = ledger.Remaining("entry_a")
	assert.Equal(t, int64(10), *remaining)
}

func TestStore_UpsertEntry_UnknownPool(t *testing.T) {
	store := NewStore(stock.NewLedger())
	err := store.UpsertEntry("missing", testEntry("entry_a", 10, nil))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteEntry(t *testing.T) {
	ledger := stock.NewLedger()
	store := NewStore(ledger)

	require.NoError(t, store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 70, int64Ptr(3)),
		testEntry("entry_b", 30, nil),
	}))

	require.NoError(t, store.DeleteEntry("pool_1", "entry_a"))

	snap := store.Snapshot()
	assert.Len(t, snap.Entries("pool_1"), 1)
	assert.Nil(t, snap.Entry("entry_a"))
	assert.False(t, ledger.TryDecrement("entry_a"), "deleted entry counter is forgotten")

	// Removing the last weighted entry of an active pool is inconsistent.
	err := store.DeleteEntry("pool_1", "entry_b")
	assert.ErrorIs(t, err, ErrInconsistent)

	err = store.DeleteEntry("pool_1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := NewStore(stock.NewLedger())

	require.NoError(t, store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 70, nil),
		testEntry("entry_b", 30, nil),
	}))

	// A draw pins this snapshot.
	pinned := store.Snapshot()

	// Admin disables entry_a mid-draw.
	disabled := testEntry("entry_a", 70, nil)
	disabled.IsEnabled = false
	require.NoError(t, store.UpsertEntry("pool_1", disabled))

	// The pinned snapshot still sees the old view; new snapshots see the new.
	assert.True(t, pinned.Entry("entry_a").IsEnabled, "pinned snapshot must not tear")
	assert.False(t, store.Snapshot().Entry("entry_a").IsEnabled)
	assert.Greater(t, store.Snapshot().Version, pinned.Version)
}

func TestStore_UpsertReelConfig(t *testing.T) {
	store := NewStore(stock.NewLedger())

	cfg := &model.ReelConfig{
		ID:        "slots_main",
		Name:      "Main Slots",
		ReelCount: 3,
		Symbols: []model.Symbol{
			{Key: "cherry", Weight: 50},
			{Key: "bar", Weight: 30},
			{Key: "seven", Weight: 20, IsJackpot: true},
		},
	}
	rules := []*model.PayoutRule{
		{ID: "two_any", ReelConfigID: "slots_main", Priority: 3, Pattern: model.PatternNOfAKind, MatchCount: 2, IsEnabled: true},
		{ID: "jackpot", ReelConfigID: "slots_main", Priority: 1, Pattern: model.PatternNOfAKind, MatchCount: 3, JackpotOnly: true, IsEnabled: true},
		{ID: "disabled", ReelConfigID: "slots_main", Priority: 0, Pattern: model.PatternDefault, IsEnabled: false},
		{ID: "default", ReelConfigID: "slots_main", Priority: 99, Pattern: model.PatternDefault, IsEnabled: true},
	}

	require.NoError(t, store.UpsertReelConfig(cfg, rules))

	snap := store.Snapshot()
	require.NotNil(t, snap.Reel("slots_main"))

	got := snap.Rules("slots_main")
	require.Len(t, got, 3, "disabled rules are dropped")
	assert.Equal(t, "jackpot", got[0].ID, "rules are sorted ascending by priority")
	assert.Equal(t, "two_any", got[1].ID)
	assert.Equal(t, "default", got[2].ID)
}

func TestStore_UpsertReelConfig_RejectsEmptyOrWeightless(t *testing.T) {
	store := NewStore(stock.NewLedger())

	err := store.UpsertReelConfig(&model.ReelConfig{ID: "bad", ReelCount: 3}, nil)
	assert.ErrorIs(t, err, ErrInconsistent)

	err = store.UpsertReelConfig(&model.ReelConfig{
		ID:        "bad",
		ReelCount: 3,
		Symbols:   []model.Symbol{{Key: "x", Weight: 0}},
	}, nil)
	assert.ErrorIs(t, err, ErrInconsistent)
}

// TestStore_ConcurrentReadersAndWriters checks that snapshot swaps are safe
// under racing readers: every reader observes a fully formed snapshot.
func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	store := NewStore(stock.NewLedger())
	require.NoError(t, store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
		testEntry("entry_a", 70, nil),
		testEntry("entry_b", 30, nil),
	}))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Snapshot()
				entries := snap.Entries("pool_1")
				assert.Len(t, entries, 2)
				for _, e := range entries {
					assert.NotEmpty(t, e.ID)
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		w := float64(i + 1)
		require.NoError(t, store.UpsertPool(testPool("pool_1", true), []*model.PrizeEntry{
			testEntry("entry_a", w, nil),
			testEntry("entry_b", 30, nil),
		}))
	}
	close(stop)
	wg.Wait()
}
