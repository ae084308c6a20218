package echoapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	unreadParam = "unread"
	limitParam  = "limit"
)

// bindAndValidate decodes the request body into data and runs its validate tags.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data interface{}, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to "+name)
	}
	return validate.Struct(data)
}

type inboxQuery struct {
	UnreadOnly bool
	Limit      int
}

func (q *inboxQuery) Bind(ctx echo.Context) {
	if v, err := strconv.ParseBool(ctx.QueryParam(unreadParam)); err == nil {
		q.UnreadOnly = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil {
		q.Limit = v
	}
}
