package boiledrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

func trapNoRowsErr(err error, notFound error) error {
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows {
		return notFound
	}
	// invalid_text_representation: a malformed uuid matches nothing
	if pqErr, ok := cause.(*pq.Error); ok && pqErr.Code == "22P02" {
		return notFound
	}
	return err
}
