package stock

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v2"
)

// unlimited marks a counter with no finite stock.
const unlimited = int64(-1)

// cell is one atomic stock counter. The value is either >= 0 (finite
// remaining stock) or unlimited.
type cell struct {
	n int64
}

// Ledger holds one atomic counter per prize entry. It is the only mutation
// path for live stock: callers never read-then-write a counter themselves.
type Ledger struct {
	cells *xsync.MapOf[string, *cell]

	// restockMu serializes Restock against Publish so an admin adjustment
	// never interleaves with a counter reset. TryDecrement stays lock-free.
	restockMu sync.Mutex
}

// NewLedger creates an empty stock ledger.
func NewLedger() *Ledger {
	return &Ledger{cells: xsync.NewMapOf[*cell]()}
}

// Publish sets the counter for an entry. A nil stock publishes an unlimited
// counter. Admin config writes are last-write-wins, so Publish overwrites
// whatever the counter currently holds.
func (l *Ledger) Publish(entryID string, stock *int64) {
	l.restockMu.Lock()
	defer l.restockMu.Unlock()

	v := unlimited
	if stock != nil {
		v = *stock
	}
	c, _ := l.cells.LoadOrCompute(entryID, func() *cell { return &cell{} })
	atomic.StoreInt64(&c.n, v)
}

// Forget drops the counter for a deleted entry.
func (l *Ledger) Forget(entryID string) {
	l.cells.Delete(entryID)
}

// TryDecrement atomically consumes one unit of stock. It returns false
// without mutation when the counter is finite and already zero, or when the
// entry is unknown to the ledger. The CAS loop makes the operation
// linearizable per entry: stock never goes negative and is never decremented
// more times than were available.
func (l *Ledger) TryDecrement(entryID string) bool {
	c, ok := l.cells.Load(entryID)
	if !ok {
		return false
	}
	for {
		cur := atomic.LoadInt64(&c.n)
		if cur == unlimited {
			return true
		}
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&c.n, cur, cur-1) {
			return true
		}
	}
}

// Restock increments a finite counter by delta. It is a no-op on unlimited
// counters and on unknown entries. Restock never races a concurrent
// TryDecrement into a negative value: the add is a single atomic op and
// decrements only succeed on positive counters.
func (l *Ledger) Restock(entryID string, delta int64) {
	if delta <= 0 {
		return
	}
	l.restockMu.Lock()
	defer l.restockMu.Unlock()

	c, ok := l.cells.Load(entryID)
	if !ok {
		return
	}
	for {
		cur := atomic.LoadInt64(&c.n)
		if cur == unlimited {
			return
		}
		if atomic.CompareAndSwapInt64(&c.n, cur, cur+delta) {
			return
		}
	}
}

// InStock reports whether the entry can currently be drawn: unlimited, or a
// finite counter above zero. Entries that reached zero disappear from the
// live distribution for every draw that has not yet sampled.
func (l *Ledger) InStock(entryID string) bool {
	c, ok := l.cells.Load(entryID)
	if !ok {
		return false
	}
	n := atomic.LoadInt64(&c.n)
	return n == unlimited || n > 0
}

// Remaining returns the current counter value, nil for unlimited entries.
// The second return is false when the entry is unknown. The value is a
// point-in-time read for display; allocation decisions go through
// TryDecrement only.
func (l *Ledger) Remaining(entryID string) (*int64, bool) {
	c, ok := l.cells.Load(entryID)
	if !ok {
		return nil, false
	}
	n := atomic.LoadInt64(&c.n)
	if n == unlimited {
		return nil, true
	}
	return &n, true
}
