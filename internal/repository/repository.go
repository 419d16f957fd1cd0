package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrVersionConflict is returned by conditional writes when the optimistic
// concurrency token no longer matches the stored row.
var ErrVersionConflict = errors.New("version conflict")

// IsUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation, the store-level signal of a lost uniqueness race.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func clampPage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
