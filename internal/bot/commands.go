package bot

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/core/telegram/format"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"
	"github.com/m3rciful/imagebot/internal/users"
)

const (
	topCommandsWindow = 7 * 24 * time.Hour
	topCommandsLimit  = 5
)

func (b *Bot) start(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	created := Created(c)
	logger.Info(tghelpers.BuildContext(c), logger.CompUsers, "start", slog.Bool("is_new_user", created))
	return tghelpers.SendMD(c, welcomeText(u.FirstName, created))
}

func (b *Bot) help(c tele.Context) error {
	return tghelpers.SendMD(c, helpText(b.reg))
}

func (b *Bot) me(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	d, err := b.users.Profile(tghelpers.BuildContext(c), u.ID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			logger.Warn(tghelpers.BuildContext(c), logger.CompUsers, "profile", logger.Err(err))
		}
		return tghelpers.SendText(c, textProfileMissing)
	}
	return tghelpers.SendMD(c, profileText(d))
}

func (b *Bot) stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	now := b.now()
	s, err := b.users.Stats(ctx, now)
	if err != nil {
		logger.Warn(ctx, logger.CompUsers, "stats", logger.Err(err))
		return tghelpers.SendText(c, textStatsFailed)
	}
	top, err := b.audit.TopCommands(ctx, now.Add(-topCommandsWindow), topCommandsLimit)
	if err != nil {
		logger.Warn(ctx, logger.CompAudit, "stats.top", logger.Err(err))
		top = nil
	}
	return tghelpers.SendMD(c, statsText(s, top))
}

func (b *Bot) settings(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	if _, ok := ProfileFrom(c); !ok {
		return tghelpers.SendText(c, textNeedStart)
	}
	prefs, err := b.users.Preferences(tghelpers.BuildContext(c), u.ID)
	if err != nil {
		return err
	}
	text, markup := settingsView(prefs)
	return tghelpers.SendMD(c, text, markup)
}

func (b *Bot) notifications(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	args := Args(c)
	if len(args) == 0 {
		return tghelpers.SendMD(c, textNotificationsUsage)
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
	default:
		return tghelpers.SendMD(c, textNotificationsBad)
	}
	if err := b.setNotifications(c, u.ID, enabled); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return tghelpers.SendText(c, textNeedStart)
		}
		return tghelpers.SendText(c, textUpdateFailed)
	}
	if enabled {
		return tghelpers.SendMD(c, textNotificationsOn)
	}
	return tghelpers.SendMD(c, textNotificationsOff)
}

func (b *Bot) setNotifications(c tele.Context, tgID int64, enabled bool) error {
	ctx := tghelpers.BuildContext(c)
	err := b.users.UpdatePreferences(ctx, tgID, users.PreferencesPatch{NotificationsEnabled: &enabled})
	if err != nil {
		logger.Warn(ctx, logger.CompUsers, "settings.update",
			slog.String("setting", "notifications"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
	return err
}

func (b *Bot) imageSettings(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	prefs, err := b.users.Preferences(tghelpers.BuildContext(c), u.ID)
	if err != nil {
		return err
	}
	text, markup := imageSettingsView(prefs)
	return tghelpers.SendMD(c, text, markup)
}

func (b *Bot) echo(c tele.Context) error {
	args := Args(c)
	if len(args) == 0 {
		return tghelpers.SendMD(c, textEchoUsage)
	}
	return tghelpers.SendMDV2(c, "🔊 "+format.EscapeMarkdownV2(strings.Join(args, " ")))
}

func (b *Bot) startPrompt(c tele.Context) error {
	u, ch := c.Sender(), c.Chat()
	if u == nil || ch == nil {
		return nil
	}
	return b.prompt.Initiate(tghelpers.BuildContext(c), u.ID, ch.ID)
}

func (b *Bot) cancelPrompt(c tele.Context) error {
	u, ch := c.Sender(), c.Chat()
	if u == nil || ch == nil {
		return nil
	}
	return b.prompt.Cancel(tghelpers.BuildContext(c), u.ID, ch.ID)
}
