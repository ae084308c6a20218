package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

// roleMiddleware only lets actors holding one of roles through.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextActor(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context actor")
			}
			if lo.Contains(roles, actor.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// activeUserMiddleware rejects tokens of accounts deactivated after issuance and
// replaces the token's role with the account's current one.
func activeUserMiddleware(users user.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextActor(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context actor")
			}
			usr, err := users.GetUser(ctx.Request().Context(), actor.ID)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(actorContextKey, usr.Actor())
			return next(ctx)
		}
	}
}
