// Package users is the user directory: Telegram identities, their profiles
// and image preferences.
package users

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/m3rciful/imagebot/internal/imagegen"
)

var (
	// ErrNotFound reports an unknown Telegram user.
	ErrNotFound = errors.New("users: user not found")
	// ErrInvalidPreference reports a preference value outside the allowed set.
	ErrInvalidPreference = errors.New("users: invalid preference value")
)

// DefaultTimezone is assigned to new users.
const DefaultTimezone = "UTC"

// TelegramUser is the identity reported by Telegram for a sender.
type TelegramUser struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
	IsPremium    bool
}

// Profile is a stored user.
type Profile struct {
	ID           int64     `db:"id"`
	TelegramID   int64     `db:"telegram_id"`
	Username     *string   `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     *string   `db:"last_name"`
	LanguageCode *string   `db:"language_code"`
	IsBot        bool      `db:"is_bot"`
	IsPremium    bool      `db:"is_premium"`
	CreatedAt    time.Time `db:"created_at"`
	LastSeenAt   time.Time `db:"last_seen_at"`
}

// Preferences are a user's settings. Empty fields mean "use the default".
type Preferences struct {
	NotificationsEnabled bool   `db:"notifications_enabled"`
	Timezone             string `db:"timezone"`
	AspectRatio          string `db:"default_aspect_ratio"`
	ImageSize            string `db:"default_image_size"`
	Model                string `db:"default_model"`
}

// DefaultPreferences returns the settings of a new user.
func DefaultPreferences() Preferences {
	return Preferences{
		NotificationsEnabled: true,
		Timezone:             DefaultTimezone,
		AspectRatio:          imagegen.DefaultAspectRatio,
		ImageSize:            imagegen.DefaultImageSize,
		Model:                imagegen.DefaultModel,
	}
}

// WithDefaults fills empty fields from DefaultPreferences.
func (p Preferences) WithDefaults() Preferences {
	d := DefaultPreferences()
	if p.Timezone == "" {
		p.Timezone = d.Timezone
	}
	if p.AspectRatio == "" {
		p.AspectRatio = d.AspectRatio
	}
	if p.ImageSize == "" {
		p.ImageSize = d.ImageSize
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	return p
}

// PreferencesPatch is a partial update; nil fields are left unchanged.
type PreferencesPatch struct {
	NotificationsEnabled *bool
	Timezone             *string
	AspectRatio          *string
	ImageSize            *string
	Model                *string
}

// Empty reports whether the patch changes nothing.
func (p PreferencesPatch) Empty() bool {
	return p.NotificationsEnabled == nil && p.Timezone == nil &&
		p.AspectRatio == nil && p.ImageSize == nil && p.Model == nil
}

// Validate checks every set field against the allowed values.
func (p PreferencesPatch) Validate() error {
	switch {
	case p.AspectRatio != nil && !imagegen.ValidAspectRatio(*p.AspectRatio):
		return fmt.Errorf("%w: aspect ratio %q", ErrInvalidPreference, *p.AspectRatio)
	case p.ImageSize != nil && !imagegen.ValidImageSize(*p.ImageSize):
		return fmt.Errorf("%w: image size %q", ErrInvalidPreference, *p.ImageSize)
	case p.Model != nil && !imagegen.ValidModel(*p.Model):
		return fmt.Errorf("%w: model %q", ErrInvalidPreference, *p.Model)
	}
	if p.Timezone != nil {
		if *p.Timezone == "" {
			return fmt.Errorf("%w: empty timezone", ErrInvalidPreference)
		}
		if _, err := time.LoadLocation(*p.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q", ErrInvalidPreference, *p.Timezone)
		}
	}
	return nil
}

// ProfileDetails is what /me shows.
type ProfileDetails struct {
	Profile      Profile
	Preferences  Preferences
	CommandCount int
}

// UserStats summarises activity.
type UserStats struct {
	Total          int
	ActiveToday    int
	ActiveThisWeek int
}
