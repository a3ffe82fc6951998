package repo

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/store"
)

// DefaultLanes is the default number of mutation lanes.
const DefaultLanes = 4

// Repository is the only component allowed to mutate the record store;
// every other component goes through it (or through the external
// facade, which shares the same store-level writer).
//
// Concurrency model:
//   - Every mutating call executes off the caller's goroutine on one
//     of a fixed set of worker lanes. Calls targeting the same uid are
//     routed to the same lane, so they apply in issuance order;
//     calls on different uids may interleave, and the store's single
//     connection serializes the actual writes. Work without a uid
//     (inserts, exports) rotates over the lanes round-robin.
//   - Results and watch updates are delivered from one designated
//     notification goroutine, so observers are only ever called from
//     a single consistent context.
//   - Operations are not cancellable once submitted. A delete racing
//     an update on the same id from different callers resolves by
//     store write order (last submitted wins); this non-determinism is
//     accepted, not a bug.
type Repository struct {
	store *store.Store
	log   zerolog.Logger
	day   func() int64 // current epoch-day source, swappable in tests

	lanes    []chan func()
	nextLane atomic.Uint64
	notifyQ  chan func()
	done     chan struct{}

	mu       sync.Mutex
	watchers map[string]*watcher
	closed   bool

	senders  sync.WaitGroup
	wg       sync.WaitGroup
	notifyWG sync.WaitGroup
}

// Option configures a Repository.
type Option func(*Repository)

// WithLanes sets the number of mutation lanes.
func WithLanes(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.lanes = make([]chan func(), n)
		}
	}
}

// WithDayFunc overrides the current-day source.
// Tests use this to run against a simulated calendar.
func WithDayFunc(day func() int64) Option {
	return func(r *Repository) {
		r.day = day
	}
}

// New creates a Repository over the given store and starts its worker
// lanes and notification goroutine. Call Close when done.
func New(s *store.Store, log zerolog.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:    s,
		log:      log,
		day:      engine.Today,
		lanes:    make([]chan func(), DefaultLanes),
		notifyQ:  make(chan func(), 64),
		done:     make(chan struct{}),
		watchers: make(map[string]*watcher),
	}

	for _, opt := range opts {
		opt(r)
	}

	for i := range r.lanes {
		r.lanes[i] = make(chan func(), 16)
		r.wg.Add(1)
		go r.runLane(r.lanes[i])
	}

	r.notifyWG.Add(1)
	go r.runNotify()

	return r
}

// Close stops accepting work, drains in-flight operations, and shuts
// down the notification goroutine. Pending results are still
// delivered; watch channels are closed.
func (r *Repository) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	// Release any sender blocked on a full queue, then wait until no
	// goroutine can touch the lanes or the notify queue before
	// closing them.
	close(r.done)
	r.senders.Wait()

	for _, lane := range r.lanes {
		close(lane)
	}
	r.wg.Wait()

	close(r.notifyQ)
	r.notifyWG.Wait()

	r.mu.Lock()
	for token, w := range r.watchers {
		w.close()
		delete(r.watchers, token)
	}
	r.mu.Unlock()
}

// runLane executes submitted operations in FIFO order.
func (r *Repository) runLane(lane chan func()) {
	defer r.wg.Done()
	for task := range lane {
		task()
	}
}

// runNotify is the designated notification context: every result
// callback and watch update runs here, one at a time.
func (r *Repository) runNotify() {
	defer r.notifyWG.Done()
	for fn := range r.notifyQ {
		fn()
	}
}

// submit routes a task to the lane owning the given uid. Tasks for
// the same uid land on the same lane and therefore run in issuance
// order. Returns false if the repository is closed.
func (r *Repository) submit(uid int64, task func()) bool {
	return r.send(r.lanes[int(uid)%len(r.lanes)], task)
}

// submitAny routes a task with no owning uid (inserts, exports) to
// the next lane in rotation, so a burst spreads over all lanes
// instead of piling onto one.
func (r *Repository) submitAny(task func()) bool {
	n := r.nextLane.Add(1)
	return r.send(r.lanes[int(n%uint64(len(r.lanes)))], task)
}

// send enqueues a task on a lane. The mutex is released before the
// channel send: a sender parked on a full lane must not hold the lock
// the notification goroutine needs for its watcher sweep, or the two
// wedge against each other and every later call blocks.
func (r *Repository) send(lane chan func(), task func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.senders.Add(1)
	r.mu.Unlock()
	defer r.senders.Done()

	select {
	case lane <- task:
		return true
	case <-r.done:
		return false
	}
}

// queueNotify schedules fn on the notification goroutine from outside
// the lanes, under the same no-lock-across-send discipline as send.
// Returns false if the repository is closed.
func (r *Repository) queueNotify(fn func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.senders.Add(1)
	r.mu.Unlock()
	defer r.senders.Done()

	select {
	case r.notifyQ <- fn:
		return true
	case <-r.done:
		return false
	}
}

// deliver schedules a function on the notification goroutine.
//
// Only lane tasks call deliver. Close drains the lanes before closing
// the notify queue, so a send on a closed queue cannot happen.
func (r *Repository) deliver(fn func()) {
	r.notifyQ <- fn
}
