package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

type notificationApi struct {
	svc      *notification.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{svc: deps.NotifSvc, validate: deps.Validate}
	active := activeUserMiddleware(deps.Users)

	ng := g.Group("/notifications", jwt, active)
	ng.GET("", api.query)
	ng.POST("/:id/read", api.markRead)

	dg := g.Group("/devices", jwt, active)
	dg.POST("", api.registerDevice)
	dg.DELETE("/:token", api.deactivateDevice)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var q inboxQuery
	q.Bind(ctx)

	ns, err := api.svc.List(ctx.Request().Context(), actor, q.UnreadOnly, q.Limit)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) registerDevice(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.NewDevice
	if err = bindAndValidate(ctx, api.validate, &data, "NewDevice"); err != nil {
		return err
	}

	dev, err := api.svc.RegisterDevice(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "registering device")
	}
	return ctx.JSON(http.StatusCreated, dev)
}

func (api *notificationApi) deactivateDevice(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeactivateDevice(ctx.Request().Context(), actor, ctx.Param("token")); err != nil {
		return errors.Wrap(err, "deactivating device")
	}
	return ctx.NoContent(http.StatusNoContent)
}
