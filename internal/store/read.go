package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const prescriptionColumns = `uid, shortName, description, startDateEpoch, endDateEpoch,
	timeTermId, doctorName, doctorLocation, isActive, lastDateReceivedEpoch, hasReceivedToday`

// QueryActiveWithTerm returns every record with isActive = 1 joined
// with its time term. Results are ordered deterministically by
// (term sortOrder ASC, uid ASC) - the stable presentation order used
// by every active-list read path (live view and export).
//
// Returns an empty slice (not nil) if no records are active.
func (s *Store) QueryActiveWithTerm(ctx context.Context) ([]PrescriptionWithTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.uid, p.shortName, p.description, p.startDateEpoch, p.endDateEpoch,
		       p.timeTermId, p.doctorName, p.doctorLocation, p.isActive,
		       p.lastDateReceivedEpoch, p.hasReceivedToday,
		       t.code, t.sortOrder
		FROM prescription_drugs p
		JOIN time_terms t ON p.timeTermId = t.id
		WHERE p.isActive = 1
		ORDER BY t.sortOrder ASC, p.uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active: %w", err)
	}
	defer rows.Close()

	var out []PrescriptionWithTerm
	for rows.Next() {
		var pt PrescriptionWithTerm
		if err := scanWithTerm(rows, &pt); err != nil {
			return nil, fmt.Errorf("scan active row: %w", err)
		}
		out = append(out, pt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active rows: %w", err)
	}

	if out == nil {
		out = []PrescriptionWithTerm{}
	}

	return out, nil
}

// GetByID retrieves a single record by uid.
// Returns (nil, nil) if the record does not exist.
func (s *Store) GetByID(ctx context.Context, uid int64) (*PrescriptionDrug, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescription_drugs
		WHERE uid = ?
		LIMIT 1
	`, uid)

	var d PrescriptionDrug
	err := scanPrescription(row, &d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by id %d: %w", uid, err)
	}

	return &d, nil
}

// GetByIDWithTerm retrieves a single record joined with its time term.
// Returns (nil, nil) if the record does not exist.
func (s *Store) GetByIDWithTerm(ctx context.Context, uid int64) (*PrescriptionWithTerm, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.uid, p.shortName, p.description, p.startDateEpoch, p.endDateEpoch,
		       p.timeTermId, p.doctorName, p.doctorLocation, p.isActive,
		       p.lastDateReceivedEpoch, p.hasReceivedToday,
		       t.code, t.sortOrder
		FROM prescription_drugs p
		JOIN time_terms t ON p.timeTermId = t.id
		WHERE p.uid = ?
		LIMIT 1
	`, uid)

	var pt PrescriptionWithTerm
	err := scanWithTerm(row, &pt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by id %d with term: %w", uid, err)
	}

	return &pt, nil
}

// ListTimeTerms returns all time terms ordered by sortOrder.
func (s *Store) ListTimeTerms(ctx context.Context) ([]TimeTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, sortOrder FROM time_terms ORDER BY sortOrder ASC")
	if err != nil {
		return nil, fmt.Errorf("list time terms: %w", err)
	}
	defer rows.Close()

	var out []TimeTerm
	for rows.Next() {
		var t TimeTerm
		if err := rows.Scan(&t.ID, &t.Code, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan time term: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time terms: %w", err)
	}

	if out == nil {
		out = []TimeTerm{}
	}

	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPrescription(sc scanner, d *PrescriptionDrug) error {
	return sc.Scan(
		&d.UID,
		&d.ShortName,
		&d.Description,
		&d.StartDateEpoch,
		&d.EndDateEpoch,
		&d.TimeTermID,
		&d.DoctorName,
		&d.DoctorLocation,
		&d.IsActive,
		&d.LastDateReceivedEpoch,
		&d.HasReceivedToday,
	)
}

func scanWithTerm(sc scanner, pt *PrescriptionWithTerm) error {
	return sc.Scan(
		&pt.UID,
		&pt.ShortName,
		&pt.Description,
		&pt.StartDateEpoch,
		&pt.EndDateEpoch,
		&pt.TimeTermID,
		&pt.DoctorName,
		&pt.DoctorLocation,
		&pt.IsActive,
		&pt.LastDateReceivedEpoch,
		&pt.HasReceivedToday,
		&pt.TermCode,
		&pt.TermOrder,
	)
}
