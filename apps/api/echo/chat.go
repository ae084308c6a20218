package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

type chatApi struct {
	svc      *chat.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{svc: deps.ChatSvc, validate: deps.Validate}
	active := activeUserMiddleware(deps.Users)

	tg := g.Group("/threads", jwt, active)
	tg.POST("", api.createThread)
	tg.GET("/:id/messages", api.listThread)
	tg.POST("/:id/messages", api.createMessage)

	mg := g.Group("/messages", jwt, active)
	mg.GET("/pending", api.pending, roleMiddleware(user.PrivilegedRoles...))
	mg.GET("/:id", api.retrieve)
	mg.PUT("/:id", api.edit)
	mg.POST("/:id/approve", api.approve, roleMiddleware(user.PrivilegedRoles...))
	mg.POST("/:id/reject", api.reject, roleMiddleware(user.PrivilegedRoles...))
	mg.GET("/:id/history", api.history)
}

// Handlers

func (api *chatApi) createThread(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data chat.NewThread
	if err = bindAndValidate(ctx, api.validate, &data, "NewThread"); err != nil {
		return err
	}

	th, err := api.svc.CreateThread(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating thread")
	}
	return ctx.JSON(http.StatusCreated, th)
}

func (api *chatApi) listThread(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.svc.ListThread(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing thread messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) createMessage(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data chat.NewMessage
	if err = bindAndValidate(ctx, api.validate, &data, "NewMessage"); err != nil {
		return err
	}

	msg, err := api.svc.Create(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) pending(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.svc.PendingQueue(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing pending messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	msg, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *chatApi) edit(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data chat.EditMessage
	if err = bindAndValidate(ctx, api.validate, &data, "EditMessage"); err != nil {
		return err
	}

	res, err := api.svc.Edit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "editing message")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *chatApi) approve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	msg, err := api.svc.Approve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *chatApi) reject(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data chat.RejectMessage
	if err = bindAndValidate(ctx, api.validate, &data, "RejectMessage"); err != nil {
		return err
	}

	msg, err := api.svc.Reject(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rejecting message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *chatApi) history(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	edits, err := api.svc.History(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing message history")
	}
	return ctx.JSON(http.StatusOK, edits)
}
