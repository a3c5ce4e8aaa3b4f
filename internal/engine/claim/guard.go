package claim

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v2"
)

// keySep separates the (user, pool, period) parts of a counter key. User and
// pool identifiers are rejected upstream if they contain control characters,
// so the NUL separator cannot collide.
const keySep = "\x00"

// LifetimePeriod is the period key for once-ever reservations. Lifetime
// counters are never pruned.
const LifetimePeriod = ""

// DayKey returns the daily period bucket for t in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Guard enforces per-user claim limits through an arena of atomic counters
// keyed by (user, pool, period). The count-check and the increment are a
// single CAS so N concurrent requests can never all observe count < limit
// and overshoot.
type Guard struct {
	counters *xsync.MapOf[string, *int64]
}

// NewGuard creates an empty claim guard.
func NewGuard() *Guard {
	return &Guard{counters: xsync.NewMapOf[*int64]()}
}

func counterKey(userID, poolID, periodKey string) string {
	return userID + keySep + poolID + keySep + periodKey
}

// TryReserve atomically reserves one claim slot for (user, pool, period).
// It returns false without mutation when the user already holds limit
// reservations in the period. limit <= 0 always fails.
func (g *Guard) TryReserve(userID, poolID string, limit int, periodKey string) bool {
	if limit <= 0 {
		return false
	}
	c, _ := g.counters.LoadOrCompute(counterKey(userID, poolID, periodKey), func() *int64 {
		return new(int64)
	})
	for {
		cur := atomic.LoadInt64(c)
		if cur >= int64(limit) {
			return false
		}
		if atomic.CompareAndSwapInt64(c, cur, cur+1) {
			return true
		}
	}
}

// TryReserveOnce reserves the single lifetime claim slot for (user, pool).
// Exactly one reservation can ever succeed per pair, regardless of how many
// duplicate submissions race.
func (g *Guard) TryReserveOnce(userID, poolID string) bool {
	return g.TryReserve(userID, poolID, 1, LifetimePeriod)
}

// Release returns a reservation taken by TryReserve. It exists solely as
// saga compensation for draws that reserved a slot and then failed before
// committing; committed claims are never released.
func (g *Guard) Release(userID, poolID, periodKey string) {
	c, ok := g.counters.Load(counterKey(userID, poolID, periodKey))
	if !ok {
		return
	}
	for {
		cur := atomic.LoadInt64(c)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt64(c, cur, cur-1) {
			return
		}
	}
}

// Count returns the current reservation count for (user, pool, period).
func (g *Guard) Count(userID, poolID, periodKey string) int {
	c, ok := g.counters.Load(counterKey(userID, poolID, periodKey))
	if !ok {
		return 0
	}
	return int(atomic.LoadInt64(c))
}

// Hydrate seeds a counter from the persisted claim journal at boot.
// Last-write-wins; not for use on a live counter.
func (g *Guard) Hydrate(userID, poolID, periodKey string, count int) {
	c, _ := g.counters.LoadOrCompute(counterKey(userID, poolID, periodKey), func() *int64 {
		return new(int64)
	})
	atomic.StoreInt64(c, int64(count))
}

// PruneBefore drops every daily-bucketed counter whose period sorts before
// day (an ISO date, see DayKey). Lifetime counters are kept.
func (g *Guard) PruneBefore(day string) int {
	var pruned int
	g.counters.Range(func(key string, _ *int64) bool {
		parts := strings.SplitN(key, keySep, 3)
		if len(parts) != 3 {
			return true
		}
		period := parts[2]
		if period != LifetimePeriod && period < day {
			g.counters.Delete(key)
			pruned++
		}
		return true
	})
	return pruned
}
