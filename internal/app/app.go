// Package app assembles imagebot from its configuration: storage, services,
// the Telegram runtime and the housekeeping scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/bootstrap"
	"github.com/m3rciful/imagebot/core/logger"
	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/router"
	"github.com/m3rciful/imagebot/core/telegram/sender"
	"github.com/m3rciful/imagebot/internal/auditlog"
	"github.com/m3rciful/imagebot/internal/bot"
	"github.com/m3rciful/imagebot/internal/imagegen"
	"github.com/m3rciful/imagebot/internal/prompt"
	"github.com/m3rciful/imagebot/internal/users"
)

const textRateLimited = "⏳ Too many requests. Please slow down."

// App owns every long lived component of the running bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	users  *users.Service
	audit  *auditlog.Log
	images *imagegen.Client
	flow   *prompt.Flow

	registry   *tg.Registry
	tele       *tele.Bot
	dispatcher *sender.Dispatcher
	handlers   *bot.Bot
	scheduler  gocron.Scheduler
}

// Bootstrap connects storage, applies migrations and builds the application.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: &cfg.Config, Database: cfg.Database})
	if err != nil {
		return nil, err
	}

	images, err := imagegen.New(ctx, cfg.Gemini)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	teleBot, err := tg.NewBot(&cfg.Config)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	a, err := assemble(cfg, res.DB, images, teleBot)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

// assemble wires services and handlers over already opened infrastructure.
func assemble(cfg *Config, db *sqlx.DB, images *imagegen.Client, teleBot *tele.Bot) (*App, error) {
	a := &App{
		cfg:        cfg,
		db:         db,
		users:      users.NewService(db),
		audit:      auditlog.New(db),
		images:     images,
		registry:   tg.NewRegistry(),
		tele:       teleBot,
		dispatcher: sender.NewDispatcher(sender.Options{}),
	}
	a.flow = prompt.NewFlow(nil, images, a.users, tg.NewMessenger(teleBot, a.dispatcher))
	a.handlers = bot.New(a.registry, bot.Deps{Users: a.users, Audit: a.audit, Prompt: a.flow})
	if err := a.handlers.Register(); err != nil {
		a.dispatcher.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	a.registry.SetCallbackNotFound(a.handlers.UnknownCallback())

	s, err := newScheduler(*cfg, a.flow.Tracker(), a.audit, time.Now)
	if err != nil {
		a.dispatcher.Close()
		return nil, err
	}
	a.scheduler = s
	return a, nil
}

// TelegramRunOptions describes how the core runtime should run this bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: textRateLimited})
		}
		return c.Send(textRateLimited)
	}
	middlewares := append(tg.DefaultMiddlewares(core, onLimited), a.handlers.Middlewares()...)

	textOpts, cbOpts := router.Fallbacks(a.handlers, a.handlers.Interceptor())
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(a.registry, cbOpts))
	routes = append(routes, router.TextRoutes(a.registry, textOpts)...)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Bot:         a.tele,
		Dispatcher:  a.dispatcher,
		Middlewares: middlewares,
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	a.scheduler.Start()
	logger.Info(ctx, logger.CompImages, "imagegen.status", slog.Bool("available", a.images.IsAvailable()))
	return nil
}

// stop drains background work before the database goes away.
func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if err := a.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	// Handlers may still be running after the poller stopped.
	a.flow.Close()
	a.audit.Close()
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}
	err := errors.Join(errs...)
	logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "stopped", slog.String("status", logger.Status(err)))
	return err
}
