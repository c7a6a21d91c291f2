package router

import (
	"log/slog"

	"github.com/m3rciful/imagebot/core/logger"
	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/commands"
	"github.com/m3rciful/imagebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes turns every registered command into a route with recover,
// logging, admin guard and a summary line.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		routes = append(routes, tg.Route{Endpoint: name, Handler: commandHandler(name, def, admin)})
	}

	logger.LogEvent(logger.Background(), logger.TWire, slog.LevelInfo, "complete",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(name string, def commands.Command, admin tele.MiddlewareFunc) tele.HandlerFunc {
	h := def.Handler
	if def.AdminOnly {
		h = admin(h)
	}
	handlerName := "command." + normalizeHandlerName(name)
	return wrap(func(c tele.Context) error {
		return handleWithSummary(c, handlerName, func() error { return h(c) },
			slog.String("command", name))
	})
}
