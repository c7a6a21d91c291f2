// Package bot holds the imagebot commands, callbacks and middleware and
// registers them with the telegram core.
package bot

import (
	"context"
	"errors"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"
	"github.com/m3rciful/imagebot/core/telegram/router"
	"github.com/m3rciful/imagebot/core/telegram/ui"
	"github.com/m3rciful/imagebot/internal/auditlog"
	"github.com/m3rciful/imagebot/internal/prompt"
	"github.com/m3rciful/imagebot/internal/users"
)

// Directory is the part of the user directory the handlers need.
type Directory interface {
	FindOrCreate(ctx context.Context, u users.TelegramUser) (users.Profile, bool, error)
	Profile(ctx context.Context, tgID int64) (users.ProfileDetails, error)
	Preferences(ctx context.Context, tgID int64) (users.Preferences, error)
	UpdatePreferences(ctx context.Context, tgID int64, patch users.PreferencesPatch) error
	Stats(ctx context.Context, now time.Time) (users.UserStats, error)
}

// CommandLog records commands and reports usage.
type CommandLog interface {
	RecordAsync(ctx context.Context, e auditlog.Entry)
	TopCommands(ctx context.Context, since time.Time, limit int) ([]auditlog.CommandCount, error)
}

// PromptFlow is the image prompt conversation.
type PromptFlow interface {
	Initiate(ctx context.Context, userID, chatID int64) error
	Capture(ctx context.Context, userID, chatID int64, text string) (bool, error)
	Cancel(ctx context.Context, userID, chatID int64) error
}

// Deps are the services behind the handlers.
type Deps struct {
	Users  Directory
	Audit  CommandLog
	Prompt PromptFlow
	// Now defaults to time.Now.
	Now func() time.Time
}

// Bot implements the imagebot handlers.
type Bot struct {
	reg    *tg.Registry
	users  Directory
	audit  CommandLog
	prompt PromptFlow
	now    func() time.Time
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New returns a Bot that registers into reg.
func New(reg *tg.Registry, deps Deps) *Bot {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{reg: reg, users: deps.Users, audit: deps.Audit, prompt: deps.Prompt, now: now}
}

// Register adds every command and callback to the registry.
func (b *Bot) Register() error {
	cmds := map[string]commands.Command{
		"/start":          {Handler: b.start, Description: "Show the welcome message"},
		"/help":           {Handler: b.help, Description: "Display all available commands", Aliases: []string{"help"}},
		"/me":             {Handler: b.me, Description: "View your profile information"},
		"/stats":          {Handler: b.stats, Description: "View bot statistics"},
		"/settings":       {Handler: b.settings, Description: "Manage your settings", Aliases: []string{"settings"}},
		"/notifications":  {Handler: b.notifications, Description: "Turn notifications on or off", Usage: "on|off"},
		"/image_settings": {Handler: b.imageSettings, Description: "Configure image generation defaults"},
		"/echo":           {Handler: b.echo, Description: "Echo back your message", Usage: "<text>"},
		"/prompt":         {Handler: b.startPrompt, Description: "Generate an image from a text prompt"},
		"/cancel":         {Handler: b.cancelPrompt, Description: "Cancel a pending image request"},
	}
	for name, cmd := range cmds {
		b.reg.RegisterCommand(name, cmd)
	}

	callbacks := map[string]tele.HandlerFunc{
		cbImageMain:       b.onImageMain,
		cbImageAspect:     b.onImageMenu(settingAspect),
		cbImageSize:       b.onImageMenu(settingSize),
		cbImageModel:      b.onImageMenu(settingModel),
		cbImageRefresh:    b.onImageMain,
		cbImageBack:       b.onImageMain,
		cbImageSet:        b.onImageSet,
		cbSettingsNotif:   b.onNotificationsToggle,
		cbSettingsRefresh: b.onSettingsRefresh,
		prompt.CancelCallback: func(c tele.Context) error {
			return b.cancelPrompt(c)
		},
	}
	var errs []error
	for key, h := range callbacks {
		errs = append(errs, b.reg.RegisterCallback(key, h))
	}
	return errors.Join(errs...)
}

// Interceptor offers free text to the prompt flow.
func (b *Bot) Interceptor() router.Interceptor {
	return router.Interceptor{
		Name: "prompt",
		Handle: func(c tele.Context) (bool, error) {
			u, ch := c.Sender(), c.Chat()
			if u == nil || ch == nil {
				return false, nil
			}
			return b.prompt.Capture(tghelpers.BuildContext(c), u.ID, ch.ID, c.Text())
		},
	}
}

// UnknownText answers free text nobody claimed.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMD(c, textUnknown)
	}
}

// UnknownDocument answers files the bot does not process.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMD(c, textUnexpectedDocument)
	}
}

// UnknownCallback answers stale or foreign buttons.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
}
