package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/format"
	"github.com/m3rciful/imagebot/core/telegram/keyboard"
	"github.com/m3rciful/imagebot/internal/auditlog"
	"github.com/m3rciful/imagebot/internal/imagegen"
	"github.com/m3rciful/imagebot/internal/users"
)

// Callback keys.
const (
	cbImageMain       = "img_main"
	cbImageAspect     = "img_aspect"
	cbImageSize       = "img_size"
	cbImageModel      = "img_model"
	cbImageRefresh    = "img_refresh"
	cbImageBack       = "img_back"
	cbImageSet        = "img_set"
	cbSettingsNotif   = "settings_notif"
	cbSettingsRefresh = "settings_refresh"
)

// Image settings addressed by img_set payloads.
const (
	settingAspect = "aspect"
	settingSize   = "size"
	settingModel  = "model"
)

var aspectLabels = map[string]string{
	"1:1":  "1:1 (Square)",
	"16:9": "16:9 (Wide)",
	"9:16": "9:16 (Portrait)",
	"4:3":  "4:3 (Landscape)",
	"3:4":  "3:4 (Portrait)",
}

var sizeLabels = map[string]string{
	"1K": "1K (Faster)",
	"2K": "2K (Higher Quality)",
}

func onOff(enabled bool) string {
	if enabled {
		return "🔔 On"
	}
	return "🔕 Off"
}

func orNotSet(s *string) string {
	return format.EscapeMarkdown(format.DerefString(s, "Not set"))
}

func welcomeText(firstName string, created bool) string {
	name := format.EscapeMarkdown(firstName)
	greeting := "👋 Welcome back, " + name + "!"
	if created {
		greeting = "🎉 Welcome, " + name + "!\n\nYour account has been created successfully."
	}
	return greeting + "\n\n" + startCommands
}

func helpText(reg *tg.Registry) string {
	var b strings.Builder
	b.WriteString("📖 *Command Reference*\n\n*Available Commands:*\n")
	for _, cmd := range reg.ListCommands(true) {
		_, meta, _ := reg.LookupCommand(cmd.Text)
		line := "/" + cmd.Text
		if meta.Usage != "" {
			line += " " + meta.Usage
		}
		b.WriteString(format.EscapeMarkdown(line) + " - " + cmd.Description + "\n")
	}
	b.WriteString("\n" + helpFooter)
	return b.String()
}

func profileText(d users.ProfileDetails) string {
	p, prefs := d.Profile, d.Preferences.WithDefaults()
	username := "Not set"
	if p.Username != nil && *p.Username != "" {
		username = "@" + format.EscapeMarkdown(*p.Username)
	}
	premium := "❌ No"
	if p.IsPremium {
		premium = "✅ Yes"
	}
	return "👤 *Your Profile*\n\n" +
		"*Basic Info:*\n" +
		"├ First Name: " + format.EscapeMarkdown(p.FirstName) + "\n" +
		"├ Last Name: " + orNotSet(p.LastName) + "\n" +
		"├ Username: " + username + "\n" +
		"└ Language: " + format.EscapeMarkdown(format.DerefString(p.LanguageCode, "Unknown")) + "\n\n" +
		"*Account:*\n" +
		fmt.Sprintf("├ Telegram ID: `%d`\n", p.TelegramID) +
		"├ Premium: " + premium + "\n" +
		"├ Created: " + p.CreatedAt.Format("2006-01-02") + "\n" +
		"└ Last Active: " + p.LastSeenAt.Format("2006-01-02") + "\n\n" +
		"*Statistics:*\n" +
		fmt.Sprintf("└ Commands Used: %d\n\n", d.CommandCount) +
		"*Settings:*\n" +
		"├ Notifications: " + onOff(prefs.NotificationsEnabled) + "\n" +
		"└ Timezone: " + format.EscapeMarkdown(prefs.Timezone)
}

func statsText(s users.UserStats, top []auditlog.CommandCount) string {
	var b strings.Builder
	b.WriteString("📊 *Bot Statistics*\n\n*Users:*\n")
	fmt.Fprintf(&b, "├ Total: %d\n├ Active Today: %d\n└ Active This Week: %d\n\n", s.Total, s.ActiveToday, s.ActiveThisWeek)
	b.WriteString("*Top Commands (Last 7 Days):*\n")
	if len(top) == 0 {
		b.WriteString("No commands recorded yet\n")
	}
	for i, cc := range top {
		fmt.Fprintf(&b, "%d. %s - %d uses\n", i+1, format.EscapeMarkdown(cc.Command), cc.Count)
	}
	b.WriteString("\n_Statistics are updated in real-time._")
	return b.String()
}

func settingsView(prefs users.Preferences) (string, *tele.ReplyMarkup) {
	prefs = prefs.WithDefaults()
	text := "⚙️ *Your Settings*\n\n" +
		"*General:*\n" +
		"├ Notifications: " + onOff(prefs.NotificationsEnabled) + "\n" +
		"└ Timezone: " + format.EscapeMarkdown(prefs.Timezone) + "\n\n" +
		"*Image Generation:*\n" +
		"├ Aspect Ratio: `" + prefs.AspectRatio + "`\n" +
		"├ Image Size: `" + prefs.ImageSize + "`\n" +
		"└ Model: " + imagegen.ModelName(prefs.Model)

	toggle := keyboard.Btn("🔔 Turn On Notifications", cbSettingsNotif, "on")
	if prefs.NotificationsEnabled {
		toggle = keyboard.Btn("🔕 Turn Off Notifications", cbSettingsNotif, "off")
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{toggle},
		[]keyboard.InlineBtn{keyboard.Btn("🎨 Image Settings", cbImageMain)},
		[]keyboard.InlineBtn{keyboard.Btn("🔄 Refresh", cbSettingsRefresh)},
	)
	return text, markup
}

func imageSettingsView(prefs users.Preferences) (string, *tele.ReplyMarkup) {
	prefs = prefs.WithDefaults()
	model := prefs.Model
	if m, ok := imagegen.ModelByID(prefs.Model); ok {
		model = m.Label
	}
	names := make([]string, 0, len(imagegen.Models))
	for _, m := range imagegen.Models {
		names = append(names, m.Name)
	}
	text := "🎨 *Image Generation Settings*\n\n" +
		"*Current Settings:*\n" +
		"├ Aspect Ratio: `" + prefs.AspectRatio + "`\n" +
		"├ Image Size: `" + prefs.ImageSize + "`\n" +
		"└ Model: " + model + "\n\n" +
		"*Available Options:*\n" +
		"• Aspect Ratios: " + strings.Join(imagegen.AspectRatios, ", ") + "\n" +
		"• Image Sizes: " + strings.Join(imagegen.ImageSizes, ", ") + "\n" +
		"• Models: " + strings.Join(names, ", ") + "\n\n" +
		"Use the buttons below to change your settings."

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			keyboard.Btn("📐 Aspect Ratio", cbImageAspect),
			keyboard.Btn("📏 Image Size", cbImageSize),
		},
		[]keyboard.InlineBtn{keyboard.Btn("🤖 Model", cbImageModel)},
		[]keyboard.InlineBtn{
			keyboard.Btn("🔄 Refresh", cbImageRefresh),
			keyboard.Btn("◀️ Back to Settings", cbSettingsRefresh),
		},
	)
	return text, markup
}

// optionMenu renders one image setting submenu; the selected value is checked.
func optionMenu(setting string, prefs users.Preferences) (string, *tele.ReplyMarkup) {
	prefs = prefs.WithDefaults()
	var (
		text     string
		selected string
		values   []string
		label    func(string) string
		perRow   int
	)
	switch setting {
	case settingAspect:
		text, selected, values, perRow = textAspectMenu, prefs.AspectRatio, imagegen.AspectRatios, 2
		label = func(v string) string { return aspectLabels[v] }
	case settingSize:
		text, selected, values, perRow = textSizeMenu, prefs.ImageSize, imagegen.ImageSizes, 2
		label = func(v string) string { return sizeLabels[v] }
	default:
		text, selected, perRow = textModelMenu, prefs.Model, 1
		for _, m := range imagegen.Models {
			values = append(values, m.ID)
		}
		label = func(v string) string {
			m, _ := imagegen.ModelByID(v)
			return m.Label
		}
	}

	buttons := make([]keyboard.InlineBtn, 0, len(values))
	for _, v := range values {
		caption := label(v)
		if caption == "" {
			caption = v
		}
		if v == selected {
			caption = "✅ " + caption
		}
		buttons = append(buttons, keyboard.Btn(caption, cbImageSet, setting, v))
	}
	rows := append(keyboard.Chunk(buttons, perRow), []keyboard.InlineBtn{keyboard.Btn("◀️ Back", cbImageBack)})
	return text, keyboard.InlineButtonsRows(rows...)
}
