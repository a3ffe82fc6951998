// Package scheduler owns the recompute triggers: one pass at process
// start, one pass per hour, and on-demand passes after writes that
// may change the active set.
//
// All trigger sources funnel into a single buffered signal, so
// overlapping triggers coalesce into one execution instead of
// stacking. A failed pass is retried by the scheduler itself with a
// delay; trigger callers never see the failure and later triggers are
// never blocked by it.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/engine"
)

// DefaultInterval is the periodic trigger cadence.
const DefaultInterval = time.Hour

// DefaultRetryDelay is the pause before retrying a failed pass.
const DefaultRetryDelay = 30 * time.Second

// RecomputeFunc runs one recompute pass for the given epoch-day.
// Implemented by the repository's RecomputePass.
type RecomputeFunc func(ctx context.Context, today int64) error

// Scheduler drives the recompute engine from its three trigger
// sources. Construct with New, then Start once; Trigger may be called
// from any goroutine at any time.
type Scheduler struct {
	recompute  RecomputeFunc
	day        func() int64
	interval   time.Duration
	retryDelay time.Duration
	log        zerolog.Logger

	// signal coalesces on-demand triggers and retries: a buffered
	// channel of size one means any number of pending triggers
	// collapse into a single queued execution.
	signal chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	retry   *time.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the periodic cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithRetryDelay overrides the failure retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.retryDelay = d }
}

// WithDayFunc overrides the current-day source.
func WithDayFunc(day func() int64) Option {
	return func(s *Scheduler) { s.day = day }
}

// New creates a Scheduler targeting the given recompute function.
func New(recompute RecomputeFunc, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		recompute:  recompute,
		day:        engine.Today,
		interval:   DefaultInterval,
		retryDelay: DefaultRetryDelay,
		log:        log,
		signal:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the trigger loop: one startup pass immediately, then
// one pass per interval, plus any on-demand triggers.
//
// Start follows a keep-existing policy: if a schedule is already
// running, another Start is a no-op and does not reset the periodic
// phase. The loop stops when the given context is cancelled or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Debug().Msg("scheduler already running, keeping existing schedule")
		return
	}
	s.running = true

	// Discard any trigger left over from a previous run; the startup
	// pass below covers it.
	select {
	case <-s.signal:
	default:
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
}

// Stop cancels the trigger loop, waits for it to exit, and discards
// any pending failure retry. Safe to call even if Start was never
// called; a later Start begins a fresh schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// With the loop gone no new retry can be armed; kill the last one.
	s.mu.Lock()
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()
}

// Trigger requests an on-demand pass, e.g. after an external insert
// that may change the active set. Non-blocking; triggers arriving
// while a pass is queued or running coalesce into one execution.
func (s *Scheduler) Trigger() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.log.Info().Dur("interval", s.interval).Msg("scheduler starting")

	// Startup trigger.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.signal:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single pass. On failure the error is logged and
// a retry is scheduled through the ordinary trigger path, so it
// coalesces with any other pending trigger and never blocks the loop.
func (s *Scheduler) runOnce(ctx context.Context) {
	today := s.day()
	if err := s.recompute(ctx, today); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Int64("day", today).
			Dur("retry_in", s.retryDelay).Msg("recompute pass failed, will retry")
		s.mu.Lock()
		if s.retry != nil {
			s.retry.Stop()
		}
		s.retry = time.AfterFunc(s.retryDelay, s.Trigger)
		s.mu.Unlock()
		return
	}
}
