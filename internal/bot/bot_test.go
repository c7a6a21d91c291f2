package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/internal/auditlog"
	"github.com/m3rciful/imagebot/internal/imagegen"
	"github.com/m3rciful/imagebot/internal/prompt"
	"github.com/m3rciful/imagebot/internal/users"
)

var nextUpdateID atomic.Int64

type sent struct {
	kind string
	text string
	opts *tele.SendOptions
}

type fakeContext struct {
	tele.Context
	upd       tele.Update
	mu        sync.Mutex
	store     map[string]any
	sent      []sent
	responses []*tele.CallbackResponse
}

const (
	testUserID = int64(42)
	testChatID = int64(4242)
)

func testUser() *tele.User {
	return &tele.User{ID: testUserID, FirstName: "Ada_L", Username: "ada"}
}

func newMessage(text string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{
		ID: int(nextUpdateID.Add(1)),
		Message: &tele.Message{
			Text:   text,
			Sender: testUser(),
			Chat:   &tele.Chat{ID: testChatID, Type: tele.ChatPrivate},
		},
	}}
}

func newCallback(unique, data string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{
		ID: int(nextUpdateID.Add(1)),
		Callback: &tele.Callback{
			Unique:  unique,
			Data:    data,
			Sender:  testUser(),
			Message: &tele.Message{ID: 7, Chat: &tele.Chat{ID: testChatID, Type: tele.ChatPrivate}},
		},
	}}
}

func (f *fakeContext) Update() tele.Update      { return f.upd }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Message() *tele.Message {
	if f.upd.Callback != nil {
		return f.upd.Callback.Message
	}
	return f.upd.Message
}
func (f *fakeContext) Text() string {
	if f.upd.Callback != nil {
		return ""
	}
	return f.upd.Message.Text
}
func (f *fakeContext) Sender() *tele.User {
	if f.upd.Callback != nil {
		return f.upd.Callback.Sender
	}
	return f.upd.Message.Sender
}
func (f *fakeContext) Chat() *tele.Chat { return f.Message().Chat }
func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}
func (f *fakeContext) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = v
}

func (f *fakeContext) record(kind string, what any, opts []any) error {
	s := sent{kind: kind}
	s.text, _ = what.(string)
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			s.opts = so
		}
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeContext) Send(what any, opts ...any) error { return f.record("send", what, opts) }
func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	return f.record("edit", what, opts)
}
func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	var r *tele.CallbackResponse
	if len(resp) > 0 {
		r = resp[0]
	}
	f.responses = append(f.responses, r)
	return nil
}

func (f *fakeContext) last(t *testing.T) sent {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeDirectory struct {
	prefs      users.Preferences
	details    users.ProfileDetails
	profileErr error
	findErr    error
	updateErr  error
	created    bool
	stats      users.UserStats
	patches    []users.PreferencesPatch
	statsAt    time.Time
}

func (d *fakeDirectory) FindOrCreate(_ context.Context, u users.TelegramUser) (users.Profile, bool, error) {
	if d.findErr != nil {
		return users.Profile{}, false, d.findErr
	}
	return users.Profile{ID: 1, TelegramID: u.ID, FirstName: u.FirstName}, d.created, nil
}

func (d *fakeDirectory) Profile(context.Context, int64) (users.ProfileDetails, error) {
	return d.details, d.profileErr
}

func (d *fakeDirectory) Preferences(context.Context, int64) (users.Preferences, error) {
	return d.prefs.WithDefaults(), nil
}

func (d *fakeDirectory) UpdatePreferences(_ context.Context, _ int64, p users.PreferencesPatch) error {
	if d.updateErr != nil {
		return d.updateErr
	}
	d.patches = append(d.patches, p)
	if p.AspectRatio != nil {
		d.prefs.AspectRatio = *p.AspectRatio
	}
	if p.ImageSize != nil {
		d.prefs.ImageSize = *p.ImageSize
	}
	if p.Model != nil {
		d.prefs.Model = *p.Model
	}
	if p.NotificationsEnabled != nil {
		d.prefs.NotificationsEnabled = *p.NotificationsEnabled
	}
	return nil
}

func (d *fakeDirectory) Stats(_ context.Context, now time.Time) (users.UserStats, error) {
	d.statsAt = now
	return d.stats, nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []auditlog.Entry
	top     []auditlog.CommandCount
	since   time.Time
	limit   int
}

func (l *fakeLog) RecordAsync(_ context.Context, e auditlog.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *fakeLog) TopCommands(_ context.Context, since time.Time, limit int) ([]auditlog.CommandCount, error) {
	l.since, l.limit = since, limit
	return l.top, nil
}

type call struct {
	op             string
	userID, chatID int64
	text           string
}

type fakeFlow struct {
	calls   []call
	capture bool
}

func (f *fakeFlow) Initiate(_ context.Context, userID, chatID int64) error {
	f.calls = append(f.calls, call{op: "initiate", userID: userID, chatID: chatID})
	return nil
}

func (f *fakeFlow) Capture(_ context.Context, userID, chatID int64, text string) (bool, error) {
	f.calls = append(f.calls, call{op: "capture", userID: userID, chatID: chatID, text: text})
	return f.capture, nil
}

func (f *fakeFlow) Cancel(_ context.Context, userID, chatID int64) error {
	f.calls = append(f.calls, call{op: "cancel", userID: userID, chatID: chatID})
	return nil
}

type fixture struct {
	bot   *Bot
	reg   *tg.Registry
	users *fakeDirectory
	audit *fakeLog
	flow  *fakeFlow
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg:   tg.NewRegistry(),
		users: &fakeDirectory{prefs: users.DefaultPreferences()},
		audit: &fakeLog{},
		flow:  &fakeFlow{},
		now:   time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	f.bot = New(f.reg, Deps{Users: f.users, Audit: f.audit, Prompt: f.flow, Now: func() time.Time { return f.now }})
	require.NoError(t, f.bot.Register())
	return f
}

// run passes c through the app middleware chain into the named command.
func (f *fixture) run(t *testing.T, name string, c *fakeContext) {
	t.Helper()
	_, cmd, ok := f.reg.LookupCommand(name)
	require.True(t, ok, name)
	h := cmd.Handler
	mws := f.bot.Middlewares()
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Use(h)
	}
	require.NoError(t, h(c))
}

func (f *fixture) press(t *testing.T, c *fakeContext) {
	t.Helper()
	h, ok := f.reg.GetCallback(c.Callback().Unique)
	require.True(t, ok, c.Callback().Unique)
	require.NoError(t, h(c))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"/start", "/help", "/me", "/stats", "/settings", "/notifications",
		"/image_settings", "/echo", "/prompt", "/cancel"} {
		_, _, ok := f.reg.LookupCommand(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, []string{
		"img_aspect", "img_back", "img_main", "img_model", "img_refresh", "img_set", "img_size",
		prompt.CancelCallback, "settings_notif", "settings_refresh",
	}, f.reg.ListCallbacks())

	assert.Error(t, f.bot.Register(), "second registration collides")
}

func TestStartGreetsNewAndReturningUsers(t *testing.T) {
	f := newFixture(t)

	f.users.created = true
	c := newMessage("/start")
	f.run(t, "/start", c)
	got := c.last(t)
	assert.Contains(t, got.text, "🎉 Welcome, Ada\\_L!")
	assert.Contains(t, got.text, "created successfully")
	assert.Equal(t, tele.ModeMarkdown, got.opts.ParseMode)

	f.users.created = false
	c = newMessage("/start")
	f.run(t, "/start", c)
	assert.Contains(t, c.last(t).text, "👋 Welcome back, Ada\\_L!")
}

func TestHelpListsRegisteredCommands(t *testing.T) {
	f := newFixture(t)
	c := newMessage("/help")
	f.run(t, "/help", c)

	text := c.last(t).text
	assert.Contains(t, text, "📖 *Command Reference*")
	assert.Contains(t, text, "/image\\_settings - Configure image generation defaults")
	assert.Contains(t, text, "/notifications on|off - Turn notifications on or off")
	assert.Contains(t, text, "/echo <text> - Echo back your message")
}

func TestEcho(t *testing.T) {
	f := newFixture(t)

	c := newMessage("/echo")
	f.run(t, "/echo", c)
	assert.Equal(t, textEchoUsage, c.last(t).text)

	c = newMessage("/echo  a_b   (c)")
	f.run(t, "/echo", c)
	got := c.last(t)
	assert.Equal(t, "🔊 a\\_b \\(c\\)", got.text)
	assert.Equal(t, tele.ModeMarkdownV2, got.opts.ParseMode)
}

func TestNotificationsCommand(t *testing.T) {
	f := newFixture(t)

	c := newMessage("/notifications")
	f.run(t, "/notifications", c)
	assert.Equal(t, textNotificationsUsage, c.last(t).text)

	c = newMessage("/notifications maybe")
	f.run(t, "/notifications", c)
	assert.Equal(t, textNotificationsBad, c.last(t).text)
	assert.Empty(t, f.users.patches)

	c = newMessage("/notifications OFF")
	f.run(t, "/notifications", c)
	assert.Equal(t, textNotificationsOff, c.last(t).text)
	require.Len(t, f.users.patches, 1)
	assert.False(t, *f.users.patches[0].NotificationsEnabled)

	f.users.updateErr = users.ErrNotFound
	c = newMessage("/notifications on")
	f.run(t, "/notifications", c)
	assert.Equal(t, textNeedStart, c.last(t).text)

	f.users.updateErr = errors.New("db down")
	c = newMessage("/notifications on")
	f.run(t, "/notifications", c)
	assert.Equal(t, textUpdateFailed, c.last(t).text)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.users.stats = users.UserStats{Total: 10, ActiveToday: 2, ActiveThisWeek: 5}
	f.audit.top = []auditlog.CommandCount{{Command: "/prompt", Count: 7}, {Command: "/image_settings", Count: 3}}

	c := newMessage("/stats")
	f.run(t, "/stats", c)

	text := c.last(t).text
	assert.Contains(t, text, "├ Total: 10\n├ Active Today: 2\n└ Active This Week: 5")
	assert.Contains(t, text, "1. /prompt - 7 uses\n2. /image\\_settings - 3 uses")
	assert.Equal(t, f.now, f.users.statsAt)
	assert.Equal(t, f.now.Add(-7*24*time.Hour), f.audit.since)
	assert.Equal(t, 5, f.audit.limit)

	f.audit.top = nil
	c = newMessage("/stats")
	f.run(t, "/stats", c)
	assert.Contains(t, c.last(t).text, "No commands recorded yet")
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	last := "Lovelace"
	f.users.details = users.ProfileDetails{
		Profile: users.Profile{
			TelegramID: testUserID,
			FirstName:  "Ada",
			LastName:   &last,
			IsPremium:  true,
			CreatedAt:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			LastSeenAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		Preferences:  users.Preferences{Timezone: "America/New_York"},
		CommandCount: 12,
	}

	c := newMessage("/me")
	f.run(t, "/me", c)
	text := c.last(t).text
	assert.Contains(t, text, "├ Last Name: Lovelace")
	assert.Contains(t, text, "├ Username: Not set")
	assert.Contains(t, text, "├ Telegram ID: `42`")
	assert.Contains(t, text, "├ Premium: ✅ Yes")
	assert.Contains(t, text, "├ Created: 2026-01-02")
	assert.Contains(t, text, "└ Commands Used: 12")
	assert.Contains(t, text, "├ Notifications: 🔕 Off")
	assert.Contains(t, text, "└ Timezone: America/New\\_York")

	f.users.profileErr = users.ErrNotFound
	c = newMessage("/me")
	f.run(t, "/me", c)
	assert.Equal(t, textProfileMissing, c.last(t).text)
}

func TestSettingsRequiresProfile(t *testing.T) {
	f := newFixture(t)
	f.users.findErr = errors.New("db down")

	c := newMessage("/settings")
	f.run(t, "/settings", c)
	assert.Equal(t, textNeedStart, c.last(t).text)
}

func TestSettingsView(t *testing.T) {
	f := newFixture(t)

	c := newMessage("/settings")
	f.run(t, "/settings", c)
	got := c.last(t)
	assert.Contains(t, got.text, "├ Notifications: 🔔 On")
	assert.Contains(t, got.text, "└ Model: Gemini 3 Pro")

	kb := got.opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 3)
	assert.Equal(t, "🔕 Turn Off Notifications", kb[0][0].Text)
	assert.Equal(t, cbSettingsNotif, kb[0][0].Unique)
	assert.Equal(t, "off", kb[0][0].Data)
	assert.Equal(t, cbImageMain, kb[1][0].Unique)
	assert.Equal(t, cbSettingsRefresh, kb[2][0].Unique)
}

func TestNotificationsToggleCallback(t *testing.T) {
	f := newFixture(t)

	c := newCallback(cbSettingsNotif, "off")
	f.press(t, c)
	require.Len(t, c.responses, 1)
	assert.Equal(t, "🔕 Notifications disabled", c.responses[0].Text)

	got := c.last(t)
	assert.Equal(t, "edit", got.kind)
	assert.Contains(t, got.text, "├ Notifications: 🔕 Off")
	assert.Equal(t, "on", got.opts.ReplyMarkup.InlineKeyboard[0][0].Data)

	c = newCallback(cbSettingsNotif, "sometimes")
	f.press(t, c)
	assert.Equal(t, textSettingFailed, c.responses[0].Text)
	assert.Empty(t, c.sent)
}

func TestImageSettingsMenus(t *testing.T) {
	f := newFixture(t)

	c := newMessage("/image_settings")
	f.run(t, "/image_settings", c)
	got := c.last(t)
	assert.Contains(t, got.text, "└ Model: Gemini 3 Pro (High Quality)")
	assert.Contains(t, got.text, "• Aspect Ratios: 1:1, 16:9, 9:16, 4:3, 3:4")
	kb := got.opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 3)
	assert.Equal(t, cbImageAspect, kb[0][0].Unique)
	assert.Equal(t, cbImageSize, kb[0][1].Unique)
	assert.Equal(t, cbImageModel, kb[1][0].Unique)

	c = newCallback(cbImageAspect, "")
	f.press(t, c)
	got = c.last(t)
	assert.Equal(t, "edit", got.kind)
	assert.Equal(t, textAspectMenu, got.text)
	kb = got.opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 4, "five ratios two per row plus back")
	assert.Equal(t, "✅ 1:1 (Square)", kb[0][0].Text)
	assert.Equal(t, "16:9 (Wide)", kb[0][1].Text)
	assert.Equal(t, "aspect|16:9", kb[0][1].Data)
	assert.Equal(t, cbImageBack, kb[3][0].Unique)

	c = newCallback(cbImageModel, "")
	f.press(t, c)
	kb = c.last(t).opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 3)
	assert.Equal(t, "Gemini 2.5 Flash (Fast)", kb[0][0].Text)
	assert.Equal(t, "✅ Gemini 3 Pro (High Quality)", kb[1][0].Text)
	assert.Equal(t, "model|"+imagegen.ModelFlash, kb[0][0].Data)
}

func TestImageSetCallback(t *testing.T) {
	f := newFixture(t)

	c := newCallback(cbImageSet, "aspect|16:9")
	f.press(t, c)
	require.Len(t, c.responses, 1)
	assert.Equal(t, "✅ Aspect ratio set to 16:9", c.responses[0].Text)
	require.Len(t, f.users.patches, 1)
	assert.Equal(t, "16:9", *f.users.patches[0].AspectRatio)
	kb := c.last(t).opts.ReplyMarkup.InlineKeyboard
	assert.Equal(t, "✅ 16:9 (Wide)", kb[0][1].Text)

	c = newCallback(cbImageSet, "model|"+imagegen.ModelFlash)
	f.press(t, c)
	assert.Equal(t, "✅ Model set to Gemini 2.5 Flash", c.responses[0].Text)
}

func TestImageSetCallbackFailures(t *testing.T) {
	f := newFixture(t)

	for _, data := range []string{"", "aspect", "colour|red", "aspect|1:1|x"} {
		c := newCallback(cbImageSet, data)
		f.press(t, c)
		require.Len(t, c.responses, 1, data)
		assert.Equal(t, textSettingFailed, c.responses[0].Text, data)
		assert.Empty(t, c.sent, data)
	}

	f.users.updateErr = users.ErrInvalidPreference
	c := newCallback(cbImageSet, "size|8K")
	f.press(t, c)
	assert.Equal(t, textSettingFailed, c.responses[0].Text)
	assert.Empty(t, c.sent)
}

func TestPromptCommandsAndCancelButton(t *testing.T) {
	f := newFixture(t)

	f.run(t, "/prompt", newMessage("/prompt"))
	f.run(t, "/cancel", newMessage("/cancel"))
	f.press(t, newCallback(prompt.CancelCallback, ""))

	want := []call{
		{op: "initiate", userID: testUserID, chatID: testChatID},
		{op: "cancel", userID: testUserID, chatID: testChatID},
		{op: "cancel", userID: testUserID, chatID: testChatID},
	}
	assert.Equal(t, want, f.flow.calls)
}

func TestInterceptorForwardsText(t *testing.T) {
	f := newFixture(t)
	f.flow.capture = true
	ic := f.bot.Interceptor()
	assert.Equal(t, "prompt", ic.Name)

	handled, err := ic.Handle(newMessage("a red fox"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []call{{op: "capture", userID: testUserID, chatID: testChatID, text: "a red fox"}}, f.flow.calls)
}

func TestFallbacks(t *testing.T) {
	f := newFixture(t)

	c := newMessage("hello")
	require.NoError(t, f.bot.UnknownText()(c))
	assert.Equal(t, textUnknown, c.last(t).text)

	c = newMessage("")
	require.NoError(t, f.bot.UnknownDocument()(c))
	assert.Equal(t, textUnexpectedDocument, c.last(t).text)

	c = newCallback("old_button", "")
	require.NoError(t, f.bot.UnknownCallback()(c))
	assert.Equal(t, "Unsupported action", c.responses[0].Text)
}
