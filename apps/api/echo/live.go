package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	livesvc "github.com/Shilpa0612/school-app-backend-sub003/services/live"
)

var errHttpShuttingDown = echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")

type liveApi struct {
	registry *livesvc.Registry
	logger   core.Logger
}

func registerLiveAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	if deps.Live == nil {
		return
	}
	api := liveApi{registry: deps.Live, logger: deps.Logger}
	g.GET("/ws", api.connect, middleware.JWTWithConfig(auth.queryConfig()), activeUserMiddleware(deps.Users))
}

// connect upgrades to a websocket and keeps it registered until the peer leaves.
func (api *liveApi) connect(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	ws, err := livesvc.Upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	conn := livesvc.NewWSConn(ws)

	if err = api.registry.Register(actor.ID, conn); err != nil {
		_ = conn.Close(websocket.CloseServiceRestart, errHttpShuttingDown.Message.(string))
		if core.IsShutdown(err) {
			return nil
		}
		return errors.Wrap(err, "registering live connection")
	}
	defer func() {
		api.registry.Unregister(actor.ID, conn.ID())
		_ = conn.Close(websocket.CloseNormalClosure, "")
	}()

	if err = conn.ReadPump(func() { api.registry.Ack(actor.ID, conn.ID()) }); err != nil {
		api.logger.Debug("live connection closed", map[string]interface{}{"user_id": actor.ID, "error": err.Error()})
	}
	return nil
}
