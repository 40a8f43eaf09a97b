package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
