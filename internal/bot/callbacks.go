package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"
	"github.com/m3rciful/imagebot/internal/imagegen"
	"github.com/m3rciful/imagebot/internal/users"
)

func (b *Bot) preferences(c tele.Context) (users.Preferences, bool) {
	u := c.Sender()
	if u == nil {
		return users.Preferences{}, false
	}
	prefs, err := b.users.Preferences(tghelpers.BuildContext(c), u.ID)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), logger.CompUsers, "preferences", logger.Err(err))
		return users.DefaultPreferences(), true
	}
	return prefs, true
}

func (b *Bot) onImageMain(c tele.Context) error {
	prefs, ok := b.preferences(c)
	if !ok {
		return nil
	}
	text, markup := imageSettingsView(prefs)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (b *Bot) onImageMenu(setting string) tele.HandlerFunc {
	return func(c tele.Context) error {
		prefs, ok := b.preferences(c)
		if !ok {
			return nil
		}
		text, markup := optionMenu(setting, prefs)
		return tghelpers.EditOrSendMD(c, text, markup)
	}
}

// onImageSet applies an "img_set" press whose payload is "<setting>|<value>".
func (b *Bot) onImageSet(c tele.Context) error {
	u := c.Sender()
	parts, ok := callbacks.PayloadParts(c, 2)
	if u == nil || !ok {
		return c.Respond(&tele.CallbackResponse{Text: textSettingFailed})
	}
	setting, value := parts[0], parts[1]

	var (
		patch users.PreferencesPatch
		ack   string
	)
	switch setting {
	case settingAspect:
		patch.AspectRatio = &value
		ack = "✅ Aspect ratio set to " + value
	case settingSize:
		patch.ImageSize = &value
		ack = "✅ Image size set to " + value
	case settingModel:
		patch.Model = &value
		ack = "✅ Model set to " + imagegen.ModelName(value)
	default:
		return c.Respond(&tele.CallbackResponse{Text: textSettingFailed})
	}

	ctx := tghelpers.BuildContext(c)
	if err := b.users.UpdatePreferences(ctx, u.ID, patch); err != nil {
		logger.Warn(ctx, logger.CompUsers, "settings.update",
			slog.String("setting", setting),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return c.Respond(&tele.CallbackResponse{Text: textSettingFailed})
	}
	logger.Info(ctx, logger.CompUsers, "settings.update",
		slog.String("setting", setting),
		slog.String("value", value),
		slog.String("status", "ok"),
	)
	if err := c.Respond(&tele.CallbackResponse{Text: ack}); err != nil {
		return err
	}
	return b.onImageMenu(setting)(c)
}

func (b *Bot) onNotificationsToggle(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	var enabled bool
	switch callbacks.Payload(c) {
	case "on":
		enabled = true
	case "off":
	default:
		return c.Respond(&tele.CallbackResponse{Text: textSettingFailed})
	}
	if err := b.setNotifications(c, u.ID, enabled); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: textSettingFailed})
	}
	ack := "🔕 Notifications disabled"
	if enabled {
		ack = "🔔 Notifications enabled"
	}
	if err := c.Respond(&tele.CallbackResponse{Text: ack}); err != nil {
		return err
	}
	return b.onSettingsRefresh(c)
}

func (b *Bot) onSettingsRefresh(c tele.Context) error {
	prefs, ok := b.preferences(c)
	if !ok {
		return nil
	}
	text, markup := settingsView(prefs)
	return tghelpers.EditOrSendMD(c, text, markup)
}
