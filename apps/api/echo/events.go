package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

// eventApi publishes school events; each one fans out to its audience as notifications.
type eventApi struct {
	notifier  *notification.Notifier
	directory *directory.Resolver
	validate  *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{notifier: deps.Notifier, directory: deps.Directory, validate: deps.Validate}

	staff := roleMiddleware(user.RoleTeacher, user.RolePrincipal, user.RoleAdmin)
	privileged := roleMiddleware(user.PrivilegedRoles...)

	eg := g.Group("", jwt, activeUserMiddleware(deps.Users))
	eg.POST("/announcements", api.announce, privileged)
	eg.POST("/homework", api.homework, staff)
	eg.POST("/classwork", api.classwork, staff)
	eg.POST("/attendance", api.attendance, staff)
	eg.POST("/calendar-events", api.calendarEvent, privileged)
	eg.POST("/system-notices", api.systemNotice, roleMiddleware(user.RoleAdmin))
	eg.GET("/classes/:id/roster", api.roster, staff)
}

func (api *eventApi) publish(ctx echo.Context, evt notification.Event) error {
	res, err := api.notifier.Notify(ctx.Request().Context(), evt)
	if err != nil {
		return errors.Wrap(err, "notifying "+string(evt.Type))
	}
	return ctx.JSON(http.StatusAccepted, res)
}

func (api *eventApi) authorizeClasses(c context.Context, actor user.Actor, classIDs ...string) error {
	for _, id := range classIDs {
		if err := api.directory.AuthorizeClass(c, actor, id); err != nil {
			return err
		}
	}
	return nil
}

// Handlers

func (api *eventApi) announce(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.Announcement
	if err = bindAndValidate(ctx, api.validate, &data, "Announcement"); err != nil {
		return err
	}
	return api.publish(ctx, notification.AnnouncementPublished(actor, data))
}

func (api *eventApi) homework(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.Homework
	if err = bindAndValidate(ctx, api.validate, &data, "Homework"); err != nil {
		return err
	}
	if err = api.authorizeClasses(ctx.Request().Context(), actor, data.ClassDivisionID); err != nil {
		return err
	}
	return api.publish(ctx, notification.HomeworkAssigned(actor, data))
}

func (api *eventApi) classwork(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.Classwork
	if err = bindAndValidate(ctx, api.validate, &data, "Classwork"); err != nil {
		return err
	}
	if err = api.authorizeClasses(ctx.Request().Context(), actor, data.ClassDivisionID); err != nil {
		return err
	}
	return api.publish(ctx, notification.ClassworkPosted(actor, data))
}

func (api *eventApi) attendance(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.Attendance
	if err = bindAndValidate(ctx, api.validate, &data, "Attendance"); err != nil {
		return err
	}
	if err = api.directory.AuthorizeStudent(ctx.Request().Context(), actor, data.StudentID); err != nil {
		return err
	}
	return api.publish(ctx, notification.AttendanceMarked(actor, data))
}

func (api *eventApi) calendarEvent(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notification.CalendarEvent
	if err = bindAndValidate(ctx, api.validate, &data, "CalendarEvent"); err != nil {
		return err
	}
	return api.publish(ctx, notification.CalendarEventCreated(actor, data))
}

func (api *eventApi) systemNotice(ctx echo.Context) error {
	var data notification.SystemNotice
	if err := bindAndValidate(ctx, api.validate, &data, "SystemNotice"); err != nil {
		return err
	}
	return api.publish(ctx, notification.SystemNoticeIssued(data))
}

func (api *eventApi) roster(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	classID := ctx.Param("id")
	if err = api.authorizeClasses(ctx.Request().Context(), actor, classID); err != nil {
		return err
	}

	roster, err := api.directory.ResolveClassRoster(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "resolving class roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

