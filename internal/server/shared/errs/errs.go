// Package errs translates low-level persistence errors into domain errors.
// It keeps driver-specific error types out of the service layer while
// preserving diagnostic detail for unexpected failures.
package errs

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Translate converts a persistence error into the given target domain error.
//
// Integrity-constraint violations (duplicate username and friends) become the
// bare target: the violation itself is the signal and carries no useful
// detail. Anything else wraps the original message as diagnostics. In both
// cases errors.Is(result, target) holds.
func Translate(err error, target error) error {
	if err == nil {
		return nil
	}
	if IsIntegrityViolation(err) {
		return target
	}
	return fmt.Errorf("%w: %v", target, err)
}

// IsIntegrityViolation reports whether err is a PostgreSQL
// integrity-constraint violation (class 23), e.g. a unique index conflict.
func IsIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
}
