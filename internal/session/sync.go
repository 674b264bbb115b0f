package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/replog/internal/models"
)

// ErrSyncInFlight is returned when a sync is requested while another one is
// still waiting on the store.
var ErrSyncInFlight = errors.New("sync already in flight")

// Adapter persists entry batches. It returns the ids the store acknowledged;
// an error means nothing from the batch may be treated as saved.
type Adapter interface {
	SaveEntries(ctx context.Context, sessionID string, updates []models.EntryUpdate) ([]string, error)
}

// Syncer pushes dirty entries to an Adapter. It owns the lock that makes the
// controller and the background loop take turns on the State; the store call
// itself runs unlocked so the user can keep logging while it is in flight.
type Syncer struct {
	mu       sync.Mutex
	state    *State
	adapter  Adapter
	log      *slog.Logger
	inflight atomic.Bool
}

// NewSyncer creates a Syncer for state.
func NewSyncer(state *State, adapter Adapter, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Syncer{state: state, adapter: adapter, log: log}
}

// Do runs fn with exclusive access to the State.
func (sy *Syncer) Do(fn func(*State)) {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	fn(sy.state)
}

// SyncOnce sends the current dirty entries and clears the ones acknowledged
// and not edited since dispatch. On failure dirty flags are left as they
// were, so the next cycle retries. Returns the number of entries cleaned.
func (sy *Syncer) SyncOnce(ctx context.Context) (int, error) {
	if !sy.inflight.CompareAndSwap(false, true) {
		return 0, ErrSyncInFlight
	}
	defer sy.inflight.Store(false)

	var batch Batch
	sy.Do(func(s *State) { batch = s.PendingBatch() })
	if batch.Empty() {
		return 0, nil
	}

	start := time.Now()
	saved, err := sy.adapter.SaveEntries(ctx, batch.SessionID, batch.Updates)
	if err != nil {
		return 0, fmt.Errorf("saving %d entries: %w", len(batch.Updates), err)
	}

	var cleaned int
	sy.Do(func(s *State) { cleaned = s.Acknowledge(batch, saved) })

	sy.log.Info("sync",
		"session", batch.SessionID,
		"sent", len(batch.Updates),
		"saved", len(saved),
		"cleaned", cleaned,
		"duration", time.Since(start).String(),
	)
	if len(saved) < len(batch.Updates) {
		sy.log.Warn("store did not acknowledge all entries",
			"session", batch.SessionID,
			"unacknowledged", len(batch.Updates)-len(saved),
		)
	}
	return cleaned, nil
}

// Run syncs every interval until ctx is cancelled, then makes one last
// attempt with a short deadline. Failures are logged and retried on the next
// tick. Returns the final attempt's error.
func (sy *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_, err := sy.SyncOnce(flushCtx)
			if errors.Is(err, ErrSyncInFlight) {
				return nil
			}
			return err
		case <-ticker.C:
			if _, err := sy.SyncOnce(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
				sy.log.Warn("sync failed, will retry", "error", err)
			}
		}
	}
}
