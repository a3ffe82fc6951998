package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrReferentialIntegrity indicates a write that would break the
// timeTermId foreign key: deleting a time term that is still
// referenced, or inserting/updating a prescription with an unknown
// term id. The store rejects the write; both tables are left
// unchanged.
var ErrReferentialIntegrity = errors.New("referential integrity violation")

// ValidationError reports a record that fails a caller-side
// precondition (empty required field, end date before start date).
// Validation errors are raised before any store access, so a failed
// write is never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation returns true if the error is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsReferentialIntegrity returns true if the error is a foreign key
// violation. Uses errors.Is to handle wrapped errors.
func IsReferentialIntegrity(err error) bool {
	return errors.Is(err, ErrReferentialIntegrity)
}

// translateConstraintError maps SQLite constraint failures onto the
// store error taxonomy. Foreign key violations become
// ErrReferentialIntegrity; everything else passes through unchanged.
func translateConstraintError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintTrigger:
			return fmt.Errorf("%w: %v", ErrReferentialIntegrity, err)
		}
	}
	return err
}
