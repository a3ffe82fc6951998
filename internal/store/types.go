package store

// TimeTerm is one row of the static period-of-day lookup table.
// Rows are seeded once at store creation and never mutated afterward.
type TimeTerm struct {
	ID        int
	Code      string
	SortOrder int
}

// PrescriptionDrug is a stored prescription record.
//
// IsActive and HasReceivedToday are derived columns: their correct
// values are fully determined by the date fields plus the current day,
// and they are kept consistent by the recompute pass rather than being
// computed on every read. LastDateReceivedEpoch is only ever set by an
// explicit "mark received" action, never by recomputation.
type PrescriptionDrug struct {
	UID                   int64
	ShortName             string
	Description           string
	StartDateEpoch        int64 // days since the Unix epoch
	EndDateEpoch          int64
	TimeTermID            int
	DoctorName            string
	DoctorLocation        string
	IsActive              bool
	LastDateReceivedEpoch *int64 // nil until first marked received
	HasReceivedToday      bool
}

// PrescriptionWithTerm is a prescription joined with its time term.
// Used by the active list, the detail view, and export.
type PrescriptionWithTerm struct {
	PrescriptionDrug

	TermCode  string
	TermOrder int
}

// SeedTimeTerms returns the nine fixed time-term rows inserted at
// first store creation. The slice is freshly allocated on each call so
// callers cannot mutate the seed.
func SeedTimeTerms() []TimeTerm {
	return []TimeTerm{
		{ID: 1, Code: "before-breakfast", SortOrder: 1},
		{ID: 2, Code: "at-breakfast", SortOrder: 2},
		{ID: 3, Code: "after-breakfast", SortOrder: 3},
		{ID: 4, Code: "before-lunch", SortOrder: 4},
		{ID: 5, Code: "at-lunch", SortOrder: 5},
		{ID: 6, Code: "after-lunch", SortOrder: 6},
		{ID: 7, Code: "before-dinner", SortOrder: 7},
		{ID: 8, Code: "at-dinner", SortOrder: 8},
		{ID: 9, Code: "after-dinner", SortOrder: 9},
	}
}
