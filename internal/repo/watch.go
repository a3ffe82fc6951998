package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/medsched/medsched/internal/store"
)

// watcher is one registered subscription. kind selects what gets
// re-queried on change; uid is set for by-id watchers only.
type watcher struct {
	kind watchKind
	uid  int64

	mu       sync.Mutex
	isClosed bool
	active   chan []store.PrescriptionWithTerm
	byID     chan *store.PrescriptionWithTerm
}

type watchKind int

const (
	watchActive watchKind = iota + 1
	watchByID
)

// WatchActive subscribes to the active list. The returned channel
// carries a fresh snapshot after every committed write and after
// every recompute pass, starting with one immediate snapshot.
//
// Snapshots are coalesced: a slow reader observes the result of the
// most recently completed write, with no guarantee of seeing every
// intermediate state. The cancel function (or a done context)
// releases the subscription and closes the channel.
func (r *Repository) WatchActive(ctx context.Context) (<-chan []store.PrescriptionWithTerm, func()) {
	w := &watcher{
		kind:   watchActive,
		active: make(chan []store.PrescriptionWithTerm, 1),
	}
	cancel := r.register(ctx, w)

	return w.active, cancel
}

// WatchByID subscribes to a single record. Snapshots are nil once the
// record is deleted. Semantics otherwise match WatchActive.
func (r *Repository) WatchByID(ctx context.Context, uid int64) (<-chan *store.PrescriptionWithTerm, func()) {
	w := &watcher{
		kind: watchByID,
		uid:  uid,
		byID: make(chan *store.PrescriptionWithTerm, 1),
	}
	cancel := r.register(ctx, w)

	return w.byID, cancel
}

// register adds a watcher, schedules its initial snapshot, and wires
// cancellation. Returns an idempotent cancel function.
func (r *Repository) register(ctx context.Context, w *watcher) func() {
	token := uuid.NewString()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		w.close()
		return func() {}
	}
	r.watchers[token] = w
	r.mu.Unlock()

	// Initial snapshot from the notification goroutine, like every
	// later update. A concurrent Close closes the watcher for us.
	r.queueNotify(func() { r.refresh(ctx, w) })

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, token)
			r.mu.Unlock()
			w.close()
		})
	}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return cancel
}

// broadcast refreshes every registered watcher. Runs on the
// notification goroutine only.
func (r *Repository) broadcast(ctx context.Context) {
	r.mu.Lock()
	ws := make([]*watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		ws = append(ws, w)
	}
	r.mu.Unlock()

	for _, w := range ws {
		r.refresh(ctx, w)
	}
}

// refresh re-queries one watcher's view and pushes the snapshot.
// Runs on the notification goroutine only.
func (r *Repository) refresh(ctx context.Context, w *watcher) {
	switch w.kind {
	case watchActive:
		rows, err := r.store.QueryActiveWithTerm(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("watch refresh: query active failed")
			return
		}
		w.pushActive(rows)
	case watchByID:
		row, err := r.store.GetByIDWithTerm(ctx, w.uid)
		if err != nil {
			r.log.Error().Err(err).Int64("uid", w.uid).Msg("watch refresh: query by id failed")
			return
		}
		w.pushByID(row)
	}
}

// pushActive delivers a snapshot, replacing any undelivered one.
func (w *watcher) pushActive(rows []store.PrescriptionWithTerm) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return
	}

	select {
	case w.active <- rows:
	default:
		// Drop the stale pending snapshot, then retry once.
		select {
		case <-w.active:
		default:
		}
		select {
		case w.active <- rows:
		default:
		}
	}
}

func (w *watcher) pushByID(row *store.PrescriptionWithTerm) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return
	}

	select {
	case w.byID <- row:
	default:
		select {
		case <-w.byID:
		default:
		}
		select {
		case w.byID <- row:
		default:
		}
	}
}

// close shuts the watcher's channel exactly once.
func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return
	}
	w.isClosed = true

	switch w.kind {
	case watchActive:
		close(w.active)
	case watchByID:
		close(w.byID)
	}
}
