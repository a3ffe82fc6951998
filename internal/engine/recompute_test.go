package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/medsched/medsched/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "meds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

// snapshot reads the flags of every known record.
func snapshot(t *testing.T, s *store.Store, uids []int64) []store.PrescriptionDrug {
	t.Helper()

	out := make([]store.PrescriptionDrug, 0, len(uids))
	for _, uid := range uids {
		d, err := s.GetByID(context.Background(), uid)
		require.NoError(t, err)
		require.NotNil(t, d)
		out = append(out, *d)
	}
	return out
}

func TestRecomputer_MatchesDerive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	received := int64(1000)
	records := []store.PrescriptionDrug{
		{ShortName: "a", StartDateEpoch: 990, EndDateEpoch: 1010, TimeTermID: 1},
		{ShortName: "b", StartDateEpoch: 500, EndDateEpoch: 600, TimeTermID: 2},
		{ShortName: "c", StartDateEpoch: 1500, EndDateEpoch: 1600, TimeTermID: 3},
		{ShortName: "d", StartDateEpoch: 990, EndDateEpoch: 1010, TimeTermID: 4, LastDateReceivedEpoch: &received},
		{ShortName: "e", StartDateEpoch: 1000, EndDateEpoch: 1000, TimeTermID: 5},
	}
	uids := make([]int64, len(records))
	for i, d := range records {
		uid, err := s.InsertPrescription(ctx, d)
		require.NoError(t, err)
		uids[i] = uid
	}

	rec := NewRecomputer(s, zerolog.Nop())
	require.NoError(t, rec.Run(ctx, 1000))

	// After the pass, every stored flag equals what Derive produces.
	for _, d := range snapshot(t, s, uids) {
		wantActive, wantReceived := Derive(d.StartDateEpoch, d.EndDateEpoch, d.LastDateReceivedEpoch, 1000)
		require.Equal(t, wantActive, d.IsActive, "%s isActive", d.ShortName)
		require.Equal(t, wantReceived, d.HasReceivedToday, "%s hasReceivedToday", d.ShortName)
	}
}

func TestRecomputer_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	received := int64(700)
	var uids []int64
	for _, d := range []store.PrescriptionDrug{
		{ShortName: "a", StartDateEpoch: 690, EndDateEpoch: 710, TimeTermID: 1},
		{ShortName: "b", StartDateEpoch: 100, EndDateEpoch: 200, TimeTermID: 2, LastDateReceivedEpoch: &received},
	} {
		uid, err := s.InsertPrescription(ctx, d)
		require.NoError(t, err)
		uids = append(uids, uid)
	}

	rec := NewRecomputer(s, zerolog.Nop())
	require.NoError(t, rec.Run(ctx, 700))
	first := snapshot(t, s, uids)

	require.NoError(t, rec.Run(ctx, 700))
	second := snapshot(t, s, uids)

	require.Equal(t, first, second, "second pass for the same day changed rows")
}

func TestRecomputer_DayAdvance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	uid, err := s.InsertPrescription(ctx, store.PrescriptionDrug{
		ShortName: "short-course", StartDateEpoch: 100, EndDateEpoch: 102, TimeTermID: 1,
	})
	require.NoError(t, err)

	rec := NewRecomputer(s, zerolog.Nop())

	_, err = s.MarkReceivedToday(ctx, uid, 101)
	require.NoError(t, err)

	require.NoError(t, rec.Run(ctx, 101))
	d, err := s.GetByID(ctx, uid)
	require.NoError(t, err)
	require.True(t, d.IsActive)
	require.True(t, d.HasReceivedToday)

	// The window ends; the last-received day is now in the past.
	require.NoError(t, rec.Run(ctx, 103))
	d, err = s.GetByID(ctx, uid)
	require.NoError(t, err)
	require.False(t, d.IsActive)
	require.False(t, d.HasReceivedToday)
	require.NotNil(t, d.LastDateReceivedEpoch, "recompute must not clear lastDateReceivedEpoch")
	require.Equal(t, int64(101), *d.LastDateReceivedEpoch)
}
