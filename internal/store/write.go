package store

import (
	"context"
	"fmt"
)

// InsertPrescription inserts a new record and returns its
// store-assigned uid. The caller is responsible for having computed
// the initial derived flags; the store writes exactly what it is
// given.
//
// Inserting with an unknown timeTermId fails with
// ErrReferentialIntegrity.
func (s *Store) InsertPrescription(ctx context.Context, d PrescriptionDrug) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO prescription_drugs
		(shortName, description, startDateEpoch, endDateEpoch, timeTermId,
		 doctorName, doctorLocation, isActive, lastDateReceivedEpoch, hasReceivedToday)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ShortName,
		d.Description,
		d.StartDateEpoch,
		d.EndDateEpoch,
		d.TimeTermID,
		d.DoctorName,
		d.DoctorLocation,
		d.IsActive,
		d.LastDateReceivedEpoch,
		d.HasReceivedToday,
	)
	if err != nil {
		return 0, fmt.Errorf("insert prescription: %w", translateConstraintError(err))
	}

	uid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert prescription: last insert id: %w", err)
	}

	return uid, nil
}

// UpdatePrescription rewrites the editable fields and the re-derived
// isActive flag of an existing record. lastDateReceivedEpoch and
// hasReceivedToday are deliberately not touched: they belong to the
// "mark received" action and the recompute pass.
//
// Returns the number of rows affected: 0 means the uid does not exist,
// which is not an error.
func (s *Store) UpdatePrescription(ctx context.Context, d PrescriptionDrug) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE prescription_drugs
		SET shortName = ?, description = ?, startDateEpoch = ?, endDateEpoch = ?,
		    timeTermId = ?, doctorName = ?, doctorLocation = ?, isActive = ?
		WHERE uid = ?
	`,
		d.ShortName,
		d.Description,
		d.StartDateEpoch,
		d.EndDateEpoch,
		d.TimeTermID,
		d.DoctorName,
		d.DoctorLocation,
		d.IsActive,
		d.UID,
	)
	if err != nil {
		return 0, fmt.Errorf("update prescription: %w", translateConstraintError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update prescription: rows affected: %w", err)
	}

	return rows, nil
}

// DeletePrescription removes a record by uid.
// Returns the number of rows affected (0 if the uid does not exist).
func (s *Store) DeletePrescription(ctx context.Context, uid int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM prescription_drugs WHERE uid = ?", uid)
	if err != nil {
		return 0, fmt.Errorf("delete prescription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete prescription: rows affected: %w", err)
	}

	return rows, nil
}

// MarkReceivedToday sets lastDateReceivedEpoch and hasReceivedToday
// for a record unconditionally - there is no check that the record is
// currently active. Returns the number of rows affected.
func (s *Store) MarkReceivedToday(ctx context.Context, uid int64, today int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE prescription_drugs
		SET lastDateReceivedEpoch = ?, hasReceivedToday = 1
		WHERE uid = ?
	`, today, uid)
	if err != nil {
		return 0, fmt.Errorf("mark received: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark received: rows affected: %w", err)
	}

	return rows, nil
}

// RecomputeForToday refreshes both derived flags for every record as
// of the given day in a single UPDATE statement. SQLite applies the
// statement atomically, so readers observe either the pre- or
// post-recompute snapshot, never a mix.
//
// A NULL lastDateReceivedEpoch never compares equal to today, so
// records that were never marked received keep hasReceivedToday = 0.
func (s *Store) RecomputeForToday(ctx context.Context, today int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE prescription_drugs
		SET isActive         = CASE WHEN ? BETWEEN startDateEpoch AND endDateEpoch THEN 1 ELSE 0 END,
		    hasReceivedToday = CASE WHEN lastDateReceivedEpoch = ? THEN 1 ELSE 0 END
	`, today, today)
	if err != nil {
		return fmt.Errorf("recompute for day %d: %w", today, err)
	}
	return nil
}

// DeleteTimeTerm removes a time term by id. Fails with
// ErrReferentialIntegrity if any prescription still references the
// term; in that case both tables are left unchanged.
//
// The seeded terms are normally immutable - this exists for the
// external facade, which exposes the full address surface.
func (s *Store) DeleteTimeTerm(ctx context.Context, id int) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM time_terms WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete time term: %w", translateConstraintError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete time term: rows affected: %w", err)
	}

	return rows, nil
}
