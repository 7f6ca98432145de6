package database

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsNotFound reports whether the error is the sqlx/sql no-rows error.
func IsNotFound(err error) bool {
	return err != nil && err.Error() == "sql: no rows in result set"
}

// IsUniqueViolation reports whether the error is a postgres unique constraint
// violation. Concurrent identifier registration relies on this to detect that
// another writer already won.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}
