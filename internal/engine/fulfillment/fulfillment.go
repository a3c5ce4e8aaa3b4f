// Package fulfillment grants resolved prizes after a draw has committed.
// Granting is decoupled from the draw decision: a failure here is retried
// with backoff against the already-resolved entry and is never surfaced as
// a failed draw, since re-drawing after payment would let a user re-roll by
// exploiting a downstream outage.
package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/contestbox/reward-engine/internal/engine/wallet"
	"github.com/contestbox/reward-engine/internal/model"
)

// Request carries one resolved outcome to grant.
type Request struct {
	UserID string
	Entry  *model.PrizeEntry
}

// GrantStore persists fulfilled grants (and issued API-key codes).
type GrantStore interface {
	SaveGrant(ctx context.Context, grant *model.Grant) error
}

// Dispatcher consumes grant requests from a bounded queue and fulfills them
// by prize kind. One handler per kind, selected by switch; a new prize kind
// is a new case, not a plugin.
type Dispatcher struct {
	wallet     wallet.Wallet
	grants     GrantStore
	queue      chan Request
	maxElapsed time.Duration

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given queue capacity and a
// per-request retry budget.
func NewDispatcher(w wallet.Wallet, grants GrantStore, queueSize int, maxElapsed time.Duration) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		wallet:     w,
		grants:     grants,
		queue:      make(chan Request, queueSize),
		maxElapsed: maxElapsed,
	}
}

// Start launches the worker goroutines. Safe to call once.
func (d *Dispatcher) Start(workers int) {
	d.startOnce.Do(func() {
		if workers < 1 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Enqueue hands a committed outcome to the workers. The draw has already
// consumed stock and wallet state, so the request must not be dropped: when
// the queue is full the handoff falls back to a dedicated goroutine rather
// than blocking the caller.
func (d *Dispatcher) Enqueue(req Request) {
	select {
	case d.queue <- req:
	default:
		log.Warn().
			Str("user_id", req.UserID).
			Str("entry_id", req.Entry.ID).
			Msg("fulfillment queue full, spilling to goroutine")
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.fulfillWithRetry(req)
		}()
	}
}

// Close stops accepting work and waits for in-flight grants to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for req := range d.queue {
		d.fulfillWithRetry(req)
	}
}

func (d *Dispatcher) fulfillWithRetry(req Request) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.maxElapsed

	// The grant row is built once so its ID and any issued API-key code are
	// stable across retries, and the wallet credit applies at most once even
	// when a later step keeps failing.
	grant := &model.Grant{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		EntryID:   req.Entry.ID,
		Kind:      req.Entry.Kind,
		CreatedAt: time.Now().UTC(),
	}
	if req.Entry.Kind == model.KindAPIKey {
		grant.APIKey = uuid.NewString()
	}

	credited := false
	err := backoff.Retry(func() error {
		return d.fulfill(context.Background(), req, grant, &credited)
	}, bo)
	if err != nil {
		// The outcome stays resolved; operators re-drive from the journal.
		log.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("entry_id", req.Entry.ID).
			Str("kind", string(req.Entry.Kind)).
			Msg("prize fulfillment exhausted retries")
	}
}

// fulfill grants one resolved entry. credited guards the wallet credit so a
// grant-store failure on a later attempt cannot double-credit points.
func (d *Dispatcher) fulfill(ctx context.Context, req Request, grant *model.Grant, credited *bool) error {
	switch req.Entry.Kind {
	case model.KindPoints:
		if !*credited {
			if err := d.wallet.Credit(ctx, req.UserID, req.Entry.PointAmount); err != nil {
				return fmt.Errorf("credit points: %w", err)
			}
			*credited = true
		}
	case model.KindAPIKey, model.KindItem, model.KindBadge, model.KindNothing:
		// Payload is fully described by the entry; the journal row below is
		// the grant.
	default:
		// Unknown kinds cannot be granted; retrying will not help.
		log.Error().
			Str("kind", string(req.Entry.Kind)).
			Str("entry_id", req.Entry.ID).
			Msg("unknown prize kind, skipping grant")
		return nil
	}

	if err := d.grants.SaveGrant(ctx, grant); err != nil {
		return fmt.Errorf("save grant: %w", err)
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("entry_id", req.Entry.ID).
		Str("kind", string(req.Entry.Kind)).
		Msg("prize fulfilled")
	return nil
}
