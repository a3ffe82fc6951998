package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/store"
)

// InsertResult carries the outcome of an Insert call.
type InsertResult struct {
	UID int64
	Err error
}

// MutationResult carries the outcome of an update-shaped call.
// Rows is 0 when the target uid does not exist; callers must check
// the count - a missing record is not an error.
type MutationResult struct {
	Rows int64
	Err  error
}

// ErrClosed is returned for operations submitted after Close.
var ErrClosed = errors.New("repository closed")

// Insert validates and stores a new prescription. The call returns
// immediately; the assigned uid (or error) arrives on the returned
// channel, delivered from the notification goroutine.
//
// Validation failures (empty shortName, end before start) are
// rejected before any store access. The initial isActive flag is
// derived from the current day at call time; hasReceivedToday starts
// false and lastDateReceivedEpoch starts nil regardless of input.
func (r *Repository) Insert(ctx context.Context, d store.PrescriptionDrug) <-chan InsertResult {
	ch := make(chan InsertResult, 1)

	d.ShortName = strings.TrimSpace(d.ShortName)
	if err := validate(d); err != nil {
		ch <- InsertResult{Err: err}
		return ch
	}

	d.IsActive, _ = engine.Derive(d.StartDateEpoch, d.EndDateEpoch, nil, r.day())
	d.HasReceivedToday = false
	d.LastDateReceivedEpoch = nil

	ok := r.submitAny(func() {
		uid, err := r.store.InsertPrescription(ctx, d)
		r.deliver(func() {
			ch <- InsertResult{UID: uid, Err: err}
			if err == nil {
				r.broadcast(ctx)
			}
		})
	})
	if !ok {
		ch <- InsertResult{Err: ErrClosed}
	}

	return ch
}

// Update rewrites an existing record's editable fields, re-deriving
// isActive from the new date range. lastDateReceivedEpoch and
// hasReceivedToday are left untouched. A missing uid yields Rows 0,
// not an error.
func (r *Repository) Update(ctx context.Context, d store.PrescriptionDrug) <-chan MutationResult {
	ch := make(chan MutationResult, 1)

	d.ShortName = strings.TrimSpace(d.ShortName)
	if err := validate(d); err != nil {
		ch <- MutationResult{Err: err}
		return ch
	}

	d.IsActive, _ = engine.Derive(d.StartDateEpoch, d.EndDateEpoch, nil, r.day())

	ok := r.submit(d.UID, func() {
		rows, err := r.store.UpdatePrescription(ctx, d)
		r.deliver(func() {
			ch <- MutationResult{Rows: rows, Err: err}
			if err == nil && rows > 0 {
				r.broadcast(ctx)
			}
		})
	})
	if !ok {
		ch <- MutationResult{Err: ErrClosed}
	}

	return ch
}

// DeleteByID removes a record. A missing uid yields Rows 0.
func (r *Repository) DeleteByID(ctx context.Context, uid int64) <-chan MutationResult {
	ch := make(chan MutationResult, 1)

	ok := r.submit(uid, func() {
		rows, err := r.store.DeletePrescription(ctx, uid)
		r.deliver(func() {
			ch <- MutationResult{Rows: rows, Err: err}
			if err == nil && rows > 0 {
				r.broadcast(ctx)
			}
		})
	})
	if !ok {
		ch <- MutationResult{Err: ErrClosed}
	}

	return ch
}

// MarkReceivedToday records that today's dose was taken: sets
// lastDateReceivedEpoch to the given day and hasReceivedToday to true
// unconditionally - there is no check that the record is currently
// active.
func (r *Repository) MarkReceivedToday(ctx context.Context, uid int64, today int64) <-chan MutationResult {
	ch := make(chan MutationResult, 1)

	ok := r.submit(uid, func() {
		rows, err := r.store.MarkReceivedToday(ctx, uid, today)
		r.deliver(func() {
			ch <- MutationResult{Rows: rows, Err: err}
			if err == nil && rows > 0 {
				r.broadcast(ctx)
			}
		})
	})
	if !ok {
		ch <- MutationResult{Err: ErrClosed}
	}

	return ch
}

// RecomputePass runs one recompute pass for the given day and, on
// success, refreshes all watchers. Called by the scheduler; also
// usable directly for one-shot host commands.
func (r *Repository) RecomputePass(ctx context.Context, today int64) error {
	rec := engine.NewRecomputer(r.store, r.log)
	if err := rec.Run(ctx, today); err != nil {
		return err
	}

	r.queueNotify(func() { r.broadcast(ctx) })

	return nil
}

// QueryActive returns the active records in stable presentation order
// (term sortOrder ascending, uid ascending). Synchronous read path
// shared by the live view and export.
func (r *Repository) QueryActive(ctx context.Context) ([]store.PrescriptionWithTerm, error) {
	return r.store.QueryActiveWithTerm(ctx)
}

// QueryByID returns one record joined with its term, or nil if the
// uid does not exist.
func (r *Repository) QueryByID(ctx context.Context, uid int64) (*store.PrescriptionWithTerm, error) {
	return r.store.GetByIDWithTerm(ctx, uid)
}

// TimeTerms returns the lookup table ordered for presentation.
func (r *Repository) TimeTerms(ctx context.Context) ([]store.TimeTerm, error) {
	return r.store.ListTimeTerms(ctx)
}

// validate re-checks the caller-side preconditions defensively.
func validate(d store.PrescriptionDrug) error {
	if d.ShortName == "" {
		return &store.ValidationError{Field: "shortName", Reason: "must not be empty"}
	}
	if d.EndDateEpoch < d.StartDateEpoch {
		return &store.ValidationError{Field: "endDateEpoch", Reason: "must not be before startDateEpoch"}
	}
	return nil
}
