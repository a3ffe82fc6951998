package repo

import (
	"context"
	"time"

	"github.com/medsched/medsched/internal/export"
)

// ExportResult carries the outcome of an ExportActive call. Handle is
// empty when the export failed; callers degrade gracefully (e.g. show
// "export failed") rather than propagating a fault.
type ExportResult struct {
	Handle string
	Err    error
}

// ExportActive renders the current active list in the given format
// and hands it to the saver. Runs off the caller's goroutine; the
// handle (or failure) is delivered on the returned channel from the
// notification goroutine, mirroring the mutation call pattern.
func (r *Repository) ExportActive(ctx context.Context, format export.Format, saver export.Saver) <-chan ExportResult {
	ch := make(chan ExportResult, 1)

	ok := r.submitAny(func() {
		res := r.exportActive(ctx, format, saver)
		r.deliver(func() { ch <- res })
	})
	if !ok {
		ch <- ExportResult{Err: ErrClosed}
	}

	return ch
}

func (r *Repository) exportActive(ctx context.Context, format export.Format, saver export.Saver) ExportResult {
	rows, err := r.store.QueryActiveWithTerm(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("export: query active failed")
		return ExportResult{Err: err}
	}

	now := time.Now()
	name := export.FileName(format, now)
	body := export.Render(format, rows)

	handle, err := saver.Save(ctx, name, format.MIME(), []byte(body))
	if err != nil {
		r.log.Error().Err(err).Str("name", name).Msg("export: save failed")
		return ExportResult{Err: err}
	}

	r.log.Info().Str("handle", handle).Int("records", len(rows)).Msg("export complete")
	return ExportResult{Handle: handle}
}
