package configstore

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/contestbox/reward-engine/internal/engine/stock"
	"github.com/contestbox/reward-engine/internal/model"
)

var (
	// ErrInconsistent is returned when an admin write would leave an active
	// pool with no drawable probability mass (enabled + stocked total weight
	// <= 0) or with an invalid entry. The write is rejected as a whole.
	ErrInconsistent = errors.New("configuration inconsistent")

	// ErrNotFound is returned when a mutation targets an unknown pool,
	// entry or reel configuration.
	ErrNotFound = errors.New("configuration object not found")
)

// Snapshot is one immutable, point-in-time view of the whole reward
// configuration. Allocators pin a snapshot for the duration of a single
// draw, so admin writes never tear an in-flight computation.
type Snapshot struct {
	Version uint64

	pools   map[string]*model.PrizePool
	entries map[string][]*model.PrizeEntry // by pool, insertion order
	byEntry map[string]*model.PrizeEntry
	reels   map[string]*model.ReelConfig
	rules   map[string][]*model.PayoutRule // by reel config, ascending priority
}

// Pool returns the pool with the given ID, or nil.
func (s *Snapshot) Pool(poolID string) *model.PrizePool {
	return s.pools[poolID]
}

// Entries returns the pool's entries in insertion order. The slice is shared
// with the snapshot and must not be mutated.
func (s *Snapshot) Entries(poolID string) []*model.PrizeEntry {
	return s.entries[poolID]
}

// Entry returns the entry with the given ID, or nil.
func (s *Snapshot) Entry(entryID string) *model.PrizeEntry {
	return s.byEntry[entryID]
}

// Reel returns the reel configuration with the given ID, or nil.
func (s *Snapshot) Reel(reelConfigID string) *model.ReelConfig {
	return s.reels[reelConfigID]
}

// Rules returns the reel configuration's enabled payout rules in ascending
// priority order.
func (s *Snapshot) Rules(reelConfigID string) []*model.PayoutRule {
	return s.rules[reelConfigID]
}

// Store serves versioned immutable snapshots to allocators and applies
// admin mutations copy-on-write. Writes are last-write-wins per object.
// Initial and adjusted stock values are published to the stock ledger,
// which owns the mutable decrement path from then on.
type Store struct {
	mu     sync.Mutex
	cur    atomic.Pointer[Snapshot]
	ledger *stock.Ledger
}

// NewStore creates a store serving an empty snapshot.
func NewStore(ledger *stock.Ledger) *Store {
	s := &Store{ledger: ledger}
	s.cur.Store(emptySnapshot(0))
	return s
}

func emptySnapshot(version uint64) *Snapshot {
	return &Snapshot{
		Version: version,
		pools:   map[string]*model.PrizePool{},
		entries: map[string][]*model.PrizeEntry{},
		byEntry: map[string]*model.PrizeEntry{},
		reels:   map[string]*model.ReelConfig{},
		rules:   map[string][]*model.PayoutRule{},
	}
}

// Snapshot returns the current configuration snapshot. The result is
// immutable; callers keep it for at most one draw.
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// clone copies the current snapshot's maps so a mutation can build the next
// version without touching the published one.
func (s *Store) clone() *Snapshot {
	old := s.cur.Load()
	next := emptySnapshot(old.Version + 1)
	for k, v := range old.pools {
		next.pools[k] = v
	}
	for k, v := range old.entries {
		next.entries[k] = append([]*model.PrizeEntry(nil), v...)
	}
	for k, v := range old.byEntry {
		next.byEntry[k] = v
	}
	for k, v := range old.reels {
		next.reels[k] = v
	}
	for k, v := range old.rules {
		next.rules[k] = v
	}
	return next
}

// validatePool rejects configurations where drawing would be undefined:
// a negative weight anywhere, or an active pool whose enabled + stocked
// entries carry no positive weight. Zero configured stock counts as absent
// ("sold out" is a normal state, not an error, but it contributes no mass).
func validatePool(pool *model.PrizePool, entries []*model.PrizeEntry) error {
	var total float64
	for _, e := range entries {
		if e.Weight < 0 {
			return ErrInconsistent
		}
		if !e.Kind.Valid() {
			return ErrInconsistent
		}
		if !e.IsEnabled {
			continue
		}
		if e.Stock != nil && *e.Stock <= 0 {
			continue
		}
		total += e.Weight
	}
	if pool.IsActive && total <= 0 {
		return ErrInconsistent
	}
	return nil
}

// publishStock pushes configured stock values to the ledger. Only entries
// whose configured stock actually changed are republished, so an unrelated
// weight edit never resets a live counter.
func (s *Store) publishStock(prev *Snapshot, entries []*model.PrizeEntry) {
	for _, e := range entries {
		old := prev.byEntry[e.ID]
		if old != nil && stockEqual(old.Stock, e.Stock) {
			continue
		}
		s.ledger.Publish(e.ID, e.Stock)
	}
}

func stockEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// UpsertPool replaces the pool and its full entry list in one consistent
// write. The write is validated before publication; on failure nothing is
// published and the previous snapshot stays current.
func (s *Store) UpsertPool(pool *model.PrizePool, entries []*model.PrizeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validatePool(pool, entries); err != nil {
		return err
	}

	prev := s.cur.Load()
	next := s.clone()

	// Forget counters for entries dropped by the replacement.
	for _, old := range prev.entries[pool.ID] {
		found := false
		for _, e := range entries {
			if e.ID == old.ID {
				found = true
				break
			}
		}
		if !found {
			s.ledger.Forget(old.ID)
			delete(next.byEntry, old.ID)
		}
	}

	next.pools[pool.ID] = pool
	next.entries[pool.ID] = append([]*model.PrizeEntry(nil), entries...)
	for _, e := range entries {
		next.byEntry[e.ID] = e
	}

	s.publishStock(prev, entries)
	s.cur.Store(next)
	return nil
}

// UpsertEntry creates or replaces a single entry within an existing pool.
func (s *Store) UpsertEntry(poolID string, entry *model.PrizeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	pool := prev.pools[poolID]
	if pool == nil {
		return ErrNotFound
	}

	merged := make([]*model.PrizeEntry, 0, len(prev.entries[poolID])+1)
	replaced := false
	for _, e := range prev.entries[poolID] {
		if e.ID == entry.ID {
			merged = append(merged, entry)
			replaced = true
		} else {
			merged = append(merged, e)
		}
	}
	if !replaced {
		merged = append(merged, entry)
	}

	if err := validatePool(pool, merged); err != nil {
		return err
	}

	next := s.clone()
	next.entries[poolID] = merged
	next.byEntry[entry.ID] = entry

	s.publishStock(prev, []*model.PrizeEntry{entry})
	s.cur.Store(next)
	return nil
}

// DeleteEntry removes an entry from a pool. Deleting the last weighted entry
// of an active pool is rejected as inconsistent.
func (s *Store) DeleteEntry(poolID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	pool := prev.pools[poolID]
	if pool == nil {
		return ErrNotFound
	}

	remaining := make([]*model.PrizeEntry, 0, len(prev.entries[poolID]))
	found := false
	for _, e := range prev.entries[poolID] {
		if e.ID == entryID {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return ErrNotFound
	}

	if err := validatePool(pool, remaining); err != nil {
		return err
	}

	next := s.clone()
	next.entries[poolID] = remaining
	delete(next.byEntry, entryID)

	s.ledger.Forget(entryID)
	s.cur.Store(next)
	return nil
}

// UpsertReelConfig replaces a reel configuration and its payout rules in one
// write. Disabled rules are dropped; the rest are stored in ascending
// priority order so evaluation can stop at the first match.
func (s *Store) UpsertReelConfig(cfg *model.ReelConfig, rules []*model.PayoutRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, sym := range cfg.Symbols {
		if sym.Weight < 0 {
			return ErrInconsistent
		}
		total += sym.Weight
	}
	if len(cfg.Symbols) == 0 || total <= 0 {
		return ErrInconsistent
	}
	for _, r := range rules {
		if !r.Pattern.Valid() {
			return ErrInconsistent
		}
	}

	enabled := make([]*model.PayoutRule, 0, len(rules))
	for _, r := range rules {
		if r.IsEnabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	next := s.clone()
	next.reels[cfg.ID] = cfg
	next.rules[cfg.ID] = enabled
	s.cur.Store(next)
	return nil
}
