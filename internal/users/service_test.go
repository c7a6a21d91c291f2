package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/imagebot/internal/dbtest"
	"github.com/m3rciful/imagebot/internal/imagegen"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	svc := NewService(dbtest.Open(t))
	svc.now = clk.now
	return svc, clk
}

func ptr[T any](v T) *T { return &v }

func TestFindOrCreate(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	p, created, err := svc.FindOrCreate(ctx, TelegramUser{ID: 42, Username: "fox", FirstName: "Red", LanguageCode: "en"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(42), p.TelegramID)
	require.NotNil(t, p.Username)
	assert.Equal(t, "fox", *p.Username)
	assert.Nil(t, p.LastName)
	assert.True(t, p.CreatedAt.Equal(clk.t))

	prefs, err := svc.Preferences(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), prefs)

	clk.t = clk.t.Add(time.Hour)
	p2, created, err := svc.FindOrCreate(ctx, TelegramUser{ID: 42, FirstName: "Reddish", IsPremium: true})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, p2.ID)
	assert.Equal(t, "Reddish", p2.FirstName)
	assert.Nil(t, p2.Username)
	assert.True(t, p2.IsPremium)
	assert.True(t, p2.LastSeenAt.Equal(clk.t))
	assert.True(t, p2.CreatedAt.Equal(p.CreatedAt))
}

func TestFindOrCreateRejectsEmptyID(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.FindOrCreate(context.Background(), TelegramUser{})
	assert.Error(t, err)
}

func TestPreferencesDefaultsForUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	prefs, err := svc.Preferences(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, "1:1", prefs.AspectRatio)
	assert.Equal(t, "1K", prefs.ImageSize)
	assert.Equal(t, imagegen.ModelPro, prefs.Model)
	assert.True(t, prefs.NotificationsEnabled)
}

func TestUpdatePreferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := svc.FindOrCreate(ctx, TelegramUser{ID: 7, FirstName: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePreferences(ctx, 7, PreferencesPatch{
		AspectRatio:          ptr("16:9"),
		Model:                ptr(imagegen.ModelFlash),
		NotificationsEnabled: ptr(false),
	}))
	prefs, err := svc.Preferences(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Preferences{
		NotificationsEnabled: false,
		Timezone:             "UTC",
		AspectRatio:          "16:9",
		ImageSize:            "1K",
		Model:                imagegen.ModelFlash,
	}, prefs)

	require.NoError(t, svc.UpdatePreferences(ctx, 7, PreferencesPatch{ImageSize: ptr("2K"), Timezone: ptr("Europe/Berlin")}))
	prefs, err = svc.Preferences(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "2K", prefs.ImageSize)
	assert.Equal(t, "16:9", prefs.AspectRatio)
	assert.Equal(t, "Europe/Berlin", prefs.Timezone)
}

func TestUpdatePreferencesRecreatesMissingRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _, err := svc.FindOrCreate(ctx, TelegramUser{ID: 8, FirstName: "B"})
	require.NoError(t, err)
	_, err = svc.repo.db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = ?`, p.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePreferences(ctx, 8, PreferencesPatch{AspectRatio: ptr("3:4")}))
	prefs, err := svc.Preferences(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "3:4", prefs.AspectRatio)
	assert.Equal(t, imagegen.DefaultModel, prefs.Model)
}

func TestUpdatePreferencesErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.UpdatePreferences(ctx, 1, PreferencesPatch{AspectRatio: ptr("1:1")})
	assert.ErrorIs(t, err, ErrNotFound)

	for name, patch := range map[string]PreferencesPatch{
		"aspect":   {AspectRatio: ptr("2:1")},
		"size":     {ImageSize: ptr("4K")},
		"model":    {Model: ptr("gpt-image")},
		"timezone": {Timezone: ptr("Mars/Olympus")},
		"empty tz": {Timezone: ptr("")},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, svc.UpdatePreferences(ctx, 1, patch), ErrInvalidPreference)
		})
	}

	assert.NoError(t, svc.UpdatePreferences(ctx, 1, PreferencesPatch{}))
}

func TestProfile(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Profile(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	p, _, err := svc.FindOrCreate(ctx, TelegramUser{ID: 5, FirstName: "C"})
	require.NoError(t, err)
	for _, cmd := range []string{"/start", "/help"} {
		_, err := svc.repo.db.ExecContext(ctx,
			`INSERT INTO command_logs (user_id, command, chat_id, chat_type, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, cmd, 5, "private", clk.t)
		require.NoError(t, err)
	}

	details, err := svc.Profile(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "C", details.Profile.FirstName)
	assert.Equal(t, 2, details.CommandCount)
	assert.Equal(t, DefaultPreferences(), details.Preferences)
}

func TestStats(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	base := clk.t

	seen := map[int64]time.Time{
		1: base,                      // today
		2: base.Add(-13 * time.Hour), // yesterday
		3: base.AddDate(0, 0, -5),    // this week
		4: base.AddDate(0, 0, -30),   // long ago
	}
	for id, at := range seen {
		clk.t = at
		_, _, err := svc.FindOrCreate(ctx, TelegramUser{ID: id, FirstName: "u"})
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, UserStats{Total: 4, ActiveToday: 1, ActiveThisWeek: 3}, stats)
}

func TestPreferencesWithDefaults(t *testing.T) {
	p := Preferences{AspectRatio: "4:3"}.WithDefaults()
	assert.Equal(t, "4:3", p.AspectRatio)
	assert.Equal(t, "1K", p.ImageSize)
	assert.Equal(t, imagegen.DefaultModel, p.Model)
	assert.Equal(t, "UTC", p.Timezone)
}
