package dbx

import (
	"errors"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation   = "23505"
	pgStringTruncation  = "22001"
	pgForeignKeyMissing = "23503"
)

// Classify re-maps the Postgres error codes the service knows about onto
// common error kinds. Other errors are returned unchanged.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return common.Errorf(common.ErrorConflict, "Fields would cause confliction with other users.")
	case pgStringTruncation:
		return common.Errorf(common.ErrorValidation, "Fields too long.")
	case pgForeignKeyMissing:
		return common.Errorf(common.ErrorNotFound, "Referenced record does not exist.")
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
