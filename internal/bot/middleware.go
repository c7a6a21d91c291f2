package bot

import (
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/logger"
	tg "github.com/m3rciful/imagebot/core/telegram"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"
	"github.com/m3rciful/imagebot/internal/auditlog"
	"github.com/m3rciful/imagebot/internal/users"
)

const (
	profileKey = "profile"
	createdKey = "profile_created"
	argsKey    = "args"
)

// Middlewares returns the app chain that runs after the core one: auth, args, audit.
func (b *Bot) Middlewares() []tg.Middleware {
	return []tg.Middleware{
		{Name: "auth", Use: b.AuthMiddleware},
		{Name: "args", Use: ArgsMiddleware},
		{Name: "audit", Use: b.AuditMiddleware},
	}
}

// AuthMiddleware resolves the sender's profile, creating it on first contact.
// A failing directory is logged and the update is still handled.
func (b *Bot) AuthMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		u := c.Sender()
		if u == nil {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)
		p, created, err := b.users.FindOrCreate(ctx, users.TelegramUser{
			ID:           u.ID,
			Username:     u.Username,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			LanguageCode: u.LanguageCode,
			IsBot:        u.IsBot,
			IsPremium:    u.IsPremium,
		})
		if err != nil {
			logger.Warn(ctx, logger.CompUsers, "auth", slog.String("status", "fail"), logger.Err(err))
			return next(c)
		}
		c.Set(profileKey, p)
		c.Set(createdKey, created)
		return next(c)
	}
}

// ArgsMiddleware splits the arguments of a command message.
func ArgsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if text := strings.TrimSpace(c.Text()); strings.HasPrefix(text, "/") {
			c.Set(argsKey, strings.Fields(text)[1:])
		}
		return next(c)
	}
}

// AuditMiddleware records every command message in the background.
func (b *Bot) AuditMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())
		u, ch := c.Sender(), c.Chat()
		if c.Callback() == nil && strings.HasPrefix(text, "/") && u != nil && ch != nil {
			fields := strings.Fields(text)
			b.audit.RecordAsync(tghelpers.BuildContext(c), auditlog.Entry{
				TelegramID: u.ID,
				Command:    fields[0],
				Args:       fields[1:],
				ChatID:     ch.ID,
				ChatType:   string(ch.Type),
			})
		}
		return next(c)
	}
}

// ProfileFrom returns the profile stored by AuthMiddleware.
func ProfileFrom(c tele.Context) (users.Profile, bool) {
	p, ok := c.Get(profileKey).(users.Profile)
	return p, ok
}

// Created reports whether AuthMiddleware created the profile in this update.
func Created(c tele.Context) bool {
	created, _ := c.Get(createdKey).(bool)
	return created
}

// Args returns the command arguments stored by ArgsMiddleware.
func Args(c tele.Context) []string {
	args, _ := c.Get(argsKey).([]string)
	return args
}
