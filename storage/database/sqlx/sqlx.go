package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// invalid_text_representation: a malformed uuid can never match a row
const pqInvalidText = "22P02"

// NewDB wraps an opened postgres handle for the repositories of this package.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

// isNoMatch reports whether err only says that no row matched.
func isNoMatch(err error) bool {
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows {
		return true
	}
	pqErr, ok := cause.(*pq.Error)
	return ok && pqErr.Code == pqInvalidText
}

func trapNoRowsErr(err error, notFound error) error {
	if isNoMatch(err) {
		return notFound
	}
	return err
}
