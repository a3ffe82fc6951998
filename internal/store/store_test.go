package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "meds.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meds.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_SeedsTimeTermsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meds.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	// Reopen - the seed must not run again.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	terms, err := s2.ListTimeTerms(context.Background())
	if err != nil {
		t.Fatalf("ListTimeTerms() failed: %v", err)
	}
	if len(terms) != 9 {
		t.Fatalf("got %d time terms, want 9", len(terms))
	}
	if terms[0].Code != "before-breakfast" || terms[8].Code != "after-dinner" {
		t.Errorf("unexpected seed ordering: first=%q last=%q", terms[0].Code, terms[8].Code)
	}
	for i, term := range terms {
		if term.SortOrder != i+1 {
			t.Errorf("term %d has sortOrder %d, want %d", term.ID, term.SortOrder, i+1)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meds.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestInsertPrescription_AssignsUID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	uid1, err := s.InsertPrescription(ctx, PrescriptionDrug{
		ShortName: "amoxicillin", StartDateEpoch: 100, EndDateEpoch: 110, TimeTermID: 1,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	uid2, err := s.InsertPrescription(ctx, PrescriptionDrug{
		ShortName: "ibuprofen", StartDateEpoch: 100, EndDateEpoch: 120, TimeTermID: 2,
	})
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	if uid1 == uid2 {
		t.Errorf("uids not unique: %d == %d", uid1, uid2)
	}
	if uid2 <= uid1 {
		t.Errorf("uids not increasing: %d then %d", uid1, uid2)
	}
}

func TestInsertPrescription_UnknownTermRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertPrescription(context.Background(), PrescriptionDrug{
		ShortName: "x", StartDateEpoch: 1, EndDateEpoch: 2, TimeTermID: 42,
	})
	if err == nil {
		t.Fatal("expected foreign key error, got nil")
	}
	if !IsReferentialIntegrity(err) {
		t.Errorf("expected ErrReferentialIntegrity, got %v", err)
	}
}

func TestDeleteTimeTerm_RestrictedWhileReferenced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	uid, err := s.InsertPrescription(ctx, PrescriptionDrug{
		ShortName: "cortisone", StartDateEpoch: 10, EndDateEpoch: 20, TimeTermID: 3,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.DeleteTimeTerm(ctx, 3); !IsReferentialIntegrity(err) {
		t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
	}

	// Both tables unchanged.
	terms, err := s.ListTimeTerms(ctx)
	if err != nil {
		t.Fatalf("ListTimeTerms() failed: %v", err)
	}
	if len(terms) != 9 {
		t.Errorf("time_terms changed: got %d rows, want 9", len(terms))
	}
	d, err := s.GetByID(ctx, uid)
	if err != nil || d == nil {
		t.Errorf("referencing prescription lost: %v, %v", d, err)
	}

	// An unreferenced term can be deleted.
	rows, err := s.DeleteTimeTerm(ctx, 9)
	if err != nil {
		t.Fatalf("delete of unreferenced term failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows affected = %d, want 1", rows)
	}
}

func TestMarkReceivedToday(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	uid, err := s.InsertPrescription(ctx, PrescriptionDrug{
		ShortName: "statin", StartDateEpoch: 50, EndDateEpoch: 60, TimeTermID: 1,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := s.MarkReceivedToday(ctx, uid, 55)
	if err != nil {
		t.Fatalf("mark received failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("rows affected = %d, want 1", rows)
	}

	d, err := s.GetByID(ctx, uid)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if !d.HasReceivedToday {
		t.Error("hasReceivedToday not set")
	}
	if d.LastDateReceivedEpoch == nil || *d.LastDateReceivedEpoch != 55 {
		t.Errorf("lastDateReceivedEpoch = %v, want 55", d.LastDateReceivedEpoch)
	}

	// Missing uid: zero rows, no error.
	rows, err = s.MarkReceivedToday(ctx, uid+1000, 55)
	if err != nil {
		t.Fatalf("mark received on missing uid errored: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows affected = %d, want 0", rows)
	}
}

func TestRecomputeForToday_Atomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	last := int64(100)
	specs := []PrescriptionDrug{
		{ShortName: "in-window", StartDateEpoch: 90, EndDateEpoch: 110, TimeTermID: 1},
		{ShortName: "expired", StartDateEpoch: 10, EndDateEpoch: 20, TimeTermID: 2},
		{ShortName: "not-started", StartDateEpoch: 200, EndDateEpoch: 210, TimeTermID: 3},
		{ShortName: "received", StartDateEpoch: 90, EndDateEpoch: 110, TimeTermID: 4, LastDateReceivedEpoch: &last},
	}
	uids := make([]int64, len(specs))
	for i, d := range specs {
		uid, err := s.InsertPrescription(ctx, d)
		if err != nil {
			t.Fatalf("insert %q failed: %v", d.ShortName, err)
		}
		uids[i] = uid
	}

	if err := s.RecomputeForToday(ctx, 100); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	wantActive := []bool{true, false, false, true}
	wantReceived := []bool{false, false, false, true}
	for i, uid := range uids {
		d, err := s.GetByID(ctx, uid)
		if err != nil {
			t.Fatalf("get %d failed: %v", uid, err)
		}
		if d.IsActive != wantActive[i] {
			t.Errorf("%s: isActive = %v, want %v", d.ShortName, d.IsActive, wantActive[i])
		}
		if d.HasReceivedToday != wantReceived[i] {
			t.Errorf("%s: hasReceivedToday = %v, want %v", d.ShortName, d.HasReceivedToday, wantReceived[i])
		}
	}
}

func TestQueryActiveWithTerm_Ordering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of presentation order.
	for _, d := range []PrescriptionDrug{
		{ShortName: "dinner-med", StartDateEpoch: 0, EndDateEpoch: 1000, TimeTermID: 8},
		{ShortName: "breakfast-med", StartDateEpoch: 0, EndDateEpoch: 1000, TimeTermID: 1},
		{ShortName: "second-breakfast-med", StartDateEpoch: 0, EndDateEpoch: 1000, TimeTermID: 1},
		{ShortName: "inactive-med", StartDateEpoch: 0, EndDateEpoch: 10, TimeTermID: 1},
	} {
		if _, err := s.InsertPrescription(ctx, d); err != nil {
			t.Fatalf("insert %q failed: %v", d.ShortName, err)
		}
	}

	if err := s.RecomputeForToday(ctx, 500); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	active, err := s.QueryActiveWithTerm(ctx)
	if err != nil {
		t.Fatalf("query active failed: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("got %d active rows, want 3", len(active))
	}
	for _, pt := range active {
		if !pt.IsActive {
			t.Errorf("%s returned with isActive=false", pt.ShortName)
		}
	}
	for i := 1; i < len(active); i++ {
		a, b := active[i-1], active[i]
		if a.TermOrder > b.TermOrder ||
			(a.TermOrder == b.TermOrder && a.UID >= b.UID) {
			t.Errorf("ordering violated at %d: (%d,%d) before (%d,%d)",
				i, a.TermOrder, a.UID, b.TermOrder, b.UID)
		}
	}
}

func TestQueryActiveWithTerm_EmptyIsNotNil(t *testing.T) {
	s := openTestStore(t)

	active, err := s.QueryActiveWithTerm(context.Background())
	if err != nil {
		t.Fatalf("query active failed: %v", err)
	}
	if active == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(active) != 0 {
		t.Errorf("expected no rows, got %d", len(active))
	}
}

func TestGetByID_Absent(t *testing.T) {
	s := openTestStore(t)

	d, err := s.GetByID(context.Background(), 12345)
	if err != nil {
		t.Fatalf("get by id errored: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil for absent record, got %+v", d)
	}
}
