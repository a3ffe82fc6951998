package facade

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsched/medsched/internal/store"
)

func newTestFacade(t *testing.T, opts ...Option) (*Facade, *store.Store) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "meds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s, zerolog.Nop(), opts...), s
}

func insertSample(t *testing.T, f *Facade, name string, termID int) string {
	t.Helper()

	addr, err := f.Insert(context.Background(), "prescriptions", Values{
		"shortName":      name,
		"startDateEpoch": 100,
		"endDateEpoch":   200,
		"timeTermId":     termID,
	})
	require.NoError(t, err)
	return addr
}

func TestInsert_ReturnsItemAddress(t *testing.T) {
	f, _ := newTestFacade(t)

	addr := insertSample(t, f, "aspirin", 1)
	parsed, err := ParseAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, KindPrescriptionItem, parsed.Kind)
	assert.NotZero(t, parsed.ID)
}

func TestInsert_DefaultsDerivedFlags(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	addr := insertSample(t, f, "aspirin", 1)

	rows, err := f.Query(ctx, addr, "", nil, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 0, rows[0]["isActive"])
	assert.EqualValues(t, 0, rows[0]["hasReceivedToday"])
	assert.Nil(t, rows[0]["lastDateReceivedEpoch"])
}

func TestInsert_FailsOnUnknownTerm(t *testing.T) {
	f, _ := newTestFacade(t)

	addr, err := f.Insert(context.Background(), "prescriptions", Values{
		"shortName":      "bad",
		"startDateEpoch": 1,
		"endDateEpoch":   2,
		"timeTermId":     99,
	})
	require.Error(t, err)
	assert.True(t, store.IsReferentialIntegrity(err))
	assert.Empty(t, addr)
}

func TestInsert_RejectedOnItemAddress(t *testing.T) {
	f, _ := newTestFacade(t)

	_, err := f.Insert(context.Background(), "prescriptions/1", Values{"shortName": "x"})
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
}

func TestInsert_UnknownColumnRejected(t *testing.T) {
	f, _ := newTestFacade(t)

	_, err := f.Insert(context.Background(), "prescriptions", Values{
		"shortName": "x", "startDateEpoch": 1, "endDateEpoch": 2,
		"timeTermId": 1, "dropTable": "oops",
	})
	require.Error(t, err)
}

func TestQuery_CollectionWithFilterAndOrder(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	insertSample(t, f, "alpha", 3)
	insertSample(t, f, "beta", 1)
	insertSample(t, f, "gamma", 3)

	rows, err := f.Query(ctx, "prescriptions", "timeTermId = ?", []any{3}, "shortName DESC")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, "gamma", rows[0]["shortName"])
	assert.EqualValues(t, "alpha", rows[1]["shortName"])
}

func TestQuery_ItemImplicitIDFilter(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	insertSample(t, f, "first", 1)
	second := insertSample(t, f, "second", 2)

	rows, err := f.Query(ctx, second, "", nil, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, "second", rows[0]["shortName"])

	// Caller filter is ANDed with the implicit id filter.
	rows, err = f.Query(ctx, second, "shortName = ?", []any{"first"}, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQuery_TimeTerms(t *testing.T) {
	f, _ := newTestFacade(t)

	rows, err := f.Query(context.Background(), "time_terms", "", nil, "sortOrder ASC")
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.EqualValues(t, "before-breakfast", rows[0]["code"])
	assert.EqualValues(t, "after-dinner", rows[8]["code"])
}

func TestQuery_UnsupportedAddress(t *testing.T) {
	f, _ := newTestFacade(t)

	_, err := f.Query(context.Background(), "pharmacies", "", nil, "")
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
}

func TestUpdate_ItemAddress(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	addr := insertSample(t, f, "old-name", 1)

	rows, err := f.Update(ctx, addr, Values{"shortName": "new-name"}, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	got, err := f.Query(ctx, addr, "", nil, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, "new-name", got[0]["shortName"])
}

func TestUpdate_MissingItemIsZeroRows(t *testing.T) {
	f, _ := newTestFacade(t)

	rows, err := f.Update(context.Background(), "prescriptions/9999",
		Values{"shortName": "ghost"}, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestDelete_CollectionWithFilter(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	insertSample(t, f, "keep", 1)
	insertSample(t, f, "drop", 2)

	rows, err := f.Delete(ctx, "prescriptions", "shortName = ?", []any{"drop"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	left, err := f.Query(ctx, "prescriptions", "", nil, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.EqualValues(t, "keep", left[0]["shortName"])
}

func TestDelete_ReferencedTermRestricted(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	insertSample(t, f, "uses-term-1", 1)

	_, err := f.Delete(ctx, "time_terms/1", "", nil)
	require.Error(t, err)
	assert.True(t, store.IsReferentialIntegrity(err))

	// Both tables unchanged.
	terms, err := f.Query(ctx, "time_terms", "", nil, "")
	require.NoError(t, err)
	assert.Len(t, terms, 9)
	meds, err := f.Query(ctx, "prescriptions", "", nil, "")
	require.NoError(t, err)
	assert.Len(t, meds, 1)
}

func TestMutations_BroadcastChanges(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	token, ch, err := f.Bus().Subscribe("prescriptions")
	require.NoError(t, err)
	defer f.Bus().Unsubscribe(token)

	addr := insertSample(t, f, "observed", 1)

	select {
	case change := <-ch:
		assert.Equal(t, "prescriptions", change.Address)
	case <-time.After(time.Second):
		t.Fatal("no notification for insert")
	}

	_, err = f.Update(ctx, addr, Values{"description": "x"}, "", nil)
	require.NoError(t, err)

	select {
	case change := <-ch:
		// Collection observers also see item-level changes.
		assert.Equal(t, addr, change.Address)
	case <-time.After(time.Second):
		t.Fatal("no notification for update")
	}
}

func TestZeroRowMutation_NoBroadcast(t *testing.T) {
	f, _ := newTestFacade(t)

	token, ch, err := f.Bus().Subscribe("prescriptions")
	require.NoError(t, err)
	defer f.Bus().Unsubscribe(token)

	rows, err := f.Update(context.Background(), "prescriptions/424242",
		Values{"shortName": "nobody"}, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	select {
	case change := <-ch:
		t.Fatalf("unexpected notification: %+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestItemObserver_OnlySeesItsItem(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	first := insertSample(t, f, "first", 1)
	second := insertSample(t, f, "second", 2)

	token, ch, err := f.Bus().Subscribe(first)
	require.NoError(t, err)
	defer f.Bus().Unsubscribe(token)

	_, err = f.Update(ctx, second, Values{"description": "other"}, "", nil)
	require.NoError(t, err)

	select {
	case change := <-ch:
		t.Fatalf("item observer saw unrelated change: %+v", change)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = f.Update(ctx, first, Values{"description": "mine"}, "", nil)
	require.NoError(t, err)

	select {
	case change := <-ch:
		assert.Equal(t, first, change.Address)
	case <-time.After(time.Second):
		t.Fatal("item observer missed its own change")
	}
}

func TestOnMutateHook(t *testing.T) {
	var triggered atomic.Int64
	f, _ := newTestFacade(t, WithOnMutate(func() { triggered.Add(1) }))

	insertSample(t, f, "hooked", 1)
	assert.EqualValues(t, 1, triggered.Load())

	// Zero-row mutations do not trigger.
	_, err := f.Update(context.Background(), "prescriptions/9999",
		Values{"shortName": "x"}, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, triggered.Load())
}
