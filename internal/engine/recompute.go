package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/store"
)

// Recomputer applies the derivation rules to the entire record set as
// one atomic batch operation.
//
// The pass is idempotent: running it twice for the same day changes no
// row the second time. It is safe to run concurrently with reads - the
// store applies it as a single statement, so readers observe either
// the pre- or post-recompute snapshot.
type Recomputer struct {
	store *store.Store
	log   zerolog.Logger
}

// NewRecomputer creates a Recomputer over the given store.
func NewRecomputer(s *store.Store, log zerolog.Logger) *Recomputer {
	return &Recomputer{store: s, log: log}
}

// Run refreshes isActive and hasReceivedToday for every record as of
// the given day. No row is skipped and no partial application is
// observable.
func (r *Recomputer) Run(ctx context.Context, today int64) error {
	if err := r.store.RecomputeForToday(ctx, today); err != nil {
		return fmt.Errorf("recompute pass: %w", err)
	}

	r.log.Debug().
		Int64("day", today).
		Str("date", FormatEpochDay(today)).
		Msg("recompute pass complete")

	return nil
}
