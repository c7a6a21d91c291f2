package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/imagebot/core/logger"
)

// Service is the user directory. Every read goes to the database; nothing is cached.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a Service over db.
func NewService(db *sqlx.DB) *Service {
	return &Service{repo: NewRepository(db), now: time.Now}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// FindOrCreate returns the profile for u, creating it with default settings
// on first contact. created reports whether this call inserted it.
func (s *Service) FindOrCreate(ctx context.Context, u TelegramUser) (Profile, bool, error) {
	if u.ID == 0 {
		return Profile{}, false, fmt.Errorf("users: empty telegram id")
	}
	p, created, err := s.repo.Upsert(ctx, u, s.clock())
	if err != nil {
		logger.Error(ctx, logger.CompUsers, "user.upsert", slog.String("status", "fail"), logger.Err(err))
		return Profile{}, false, fmt.Errorf("users: find or create %d: %w", u.ID, err)
	}
	if created {
		logger.Info(ctx, logger.CompUsers, "user.created",
			slog.Int64("user_id", u.ID),
			slog.String("lang", u.LanguageCode),
			slog.Bool("is_premium", u.IsPremium),
		)
	}
	return p, created, nil
}

// Profile returns the profile with preferences and command count.
func (s *Service) Profile(ctx context.Context, tgID int64) (ProfileDetails, error) {
	p, err := s.repo.Profile(ctx, tgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileDetails{}, err
		}
		return ProfileDetails{}, fmt.Errorf("users: load profile: %w", err)
	}
	prefs, err := s.Preferences(ctx, tgID)
	if err != nil {
		return ProfileDetails{}, err
	}
	count, err := s.repo.CommandCount(ctx, p.ID)
	if err != nil {
		return ProfileDetails{}, fmt.Errorf("users: count commands: %w", err)
	}
	return ProfileDetails{Profile: p, Preferences: prefs, CommandCount: count}, nil
}

// Preferences returns the user's settings, or the defaults when the user or
// the settings row does not exist.
func (s *Service) Preferences(ctx context.Context, tgID int64) (Preferences, error) {
	prefs, found, err := s.repo.Preferences(ctx, tgID)
	if err != nil {
		return Preferences{}, fmt.Errorf("users: load preferences: %w", err)
	}
	if !found {
		return DefaultPreferences(), nil
	}
	return prefs.WithDefaults(), nil
}

// UpdatePreferences validates and applies patch. It returns ErrInvalidPreference
// for values outside the allowed sets and ErrNotFound for an unknown user.
func (s *Service) UpdatePreferences(ctx context.Context, tgID int64, patch PreferencesPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	if err := s.repo.UpdatePreferences(ctx, tgID, patch, s.clock()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		logger.Error(ctx, logger.CompUsers, "user.preferences", slog.String("status", "fail"), logger.Err(err))
		return fmt.Errorf("users: update preferences: %w", err)
	}
	logger.Debug(ctx, logger.CompUsers, "user.preferences", slog.String("status", "ok"))
	return nil
}

// Stats counts all users, those seen since the start of today (UTC) and
// those seen in the seven days before that.
func (s *Service) Stats(ctx context.Context, now time.Time) (UserStats, error) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	stats, err := s.repo.CountUsers(ctx, today, today.AddDate(0, 0, -7))
	if err != nil {
		return UserStats{}, fmt.Errorf("users: stats: %w", err)
	}
	return stats, nil
}
