package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository stores users and their settings. Queries are written with "?"
// placeholders and rebound for the connected driver.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const profileColumns = `id, telegram_id, username, first_name, last_name, language_code,
	is_bot, is_premium, created_at, last_seen_at`

// Upsert inserts u with a default settings row, or refreshes names, premium
// flag and last_seen_at when the user exists. created reports an insert.
func (r *Repository) Upsert(ctx context.Context, u TelegramUser, now time.Time) (p Profile, created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Profile{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE telegram_id = ?`), u.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.GetContext(ctx, &id, tx.Rebind(`
			INSERT INTO users (telegram_id, username, first_name, last_name, language_code,
				is_bot, is_premium, created_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (telegram_id) DO NOTHING
			RETURNING id`),
			u.ID, nullable(u.Username), u.FirstName, nullable(u.LastName), nullable(u.LanguageCode),
			u.IsBot, u.IsPremium, now, now)
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race with a concurrent insert; treat as existing.
			if err = tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE telegram_id = ?`), u.ID); err != nil {
				return Profile{}, false, fmt.Errorf("select user: %w", err)
			}
			break
		}
		if err != nil {
			return Profile{}, false, fmt.Errorf("insert user: %w", err)
		}
		created = true
		if _, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO user_settings (user_id, updated_at) VALUES (?, ?)
			ON CONFLICT (user_id) DO NOTHING`), id, now); err != nil {
			return Profile{}, false, fmt.Errorf("insert settings: %w", err)
		}
	case err != nil:
		return Profile{}, false, fmt.Errorf("select user: %w", err)
	}

	if !created {
		if _, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET username = ?, first_name = ?, last_name = ?, language_code = ?,
				is_premium = ?, last_seen_at = ?
			WHERE id = ?`),
			nullable(u.Username), u.FirstName, nullable(u.LastName), nullable(u.LanguageCode),
			u.IsPremium, now, id); err != nil {
			return Profile{}, false, fmt.Errorf("update user: %w", err)
		}
	}

	if err = tx.GetContext(ctx, &p, tx.Rebind(`SELECT `+profileColumns+` FROM users WHERE id = ?`), id); err != nil {
		return Profile{}, false, fmt.Errorf("load user: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return Profile{}, false, fmt.Errorf("commit: %w", err)
	}
	return p, created, nil
}

// Profile loads a user by Telegram id.
func (r *Repository) Profile(ctx context.Context, tgID int64) (Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT `+profileColumns+` FROM users WHERE telegram_id = ?`), tgID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

// Preferences loads the settings row of a user. found is false when the
// user or the row does not exist.
func (r *Repository) Preferences(ctx context.Context, tgID int64) (prefs Preferences, found bool, err error) {
	err = r.db.GetContext(ctx, &prefs, r.db.Rebind(`
		SELECT s.notifications_enabled, s.timezone, s.default_aspect_ratio,
			s.default_image_size, s.default_model
		FROM user_settings s
		JOIN users u ON u.id = s.user_id
		WHERE u.telegram_id = ?`), tgID)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, err
	}
	return prefs, true, nil
}

// CommandCount counts the audit log entries of a user.
func (r *Repository) CommandCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM command_logs WHERE user_id = ?`), userID)
	return n, err
}

// UpdatePreferences applies patch, creating the settings row when missing.
func (r *Repository) UpdatePreferences(ctx context.Context, tgID int64, patch PreferencesPatch, now time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE telegram_id = ?`), tgID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select user: %w", err)
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_settings (user_id, updated_at) VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`), id, now); err != nil {
		return fmt.Errorf("ensure settings: %w", err)
	}

	sets, args := patchAssignments(patch)
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)
	query := `UPDATE user_settings SET ` + strings.Join(sets, ", ") + ` WHERE user_id = ?`
	if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func patchAssignments(p PreferencesPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if p.NotificationsEnabled != nil {
		add("notifications_enabled", *p.NotificationsEnabled)
	}
	if p.Timezone != nil {
		add("timezone", *p.Timezone)
	}
	if p.AspectRatio != nil {
		add("default_aspect_ratio", *p.AspectRatio)
	}
	if p.ImageSize != nil {
		add("default_image_size", *p.ImageSize)
	}
	if p.Model != nil {
		add("default_model", *p.Model)
	}
	return sets, args
}

// CountUsers returns the number of users, and of those seen since each cutoff.
func (r *Repository) CountUsers(ctx context.Context, today, week time.Time) (UserStats, error) {
	var row struct {
		Total int `db:"total"`
		Today int `db:"today"`
		Week  int `db:"week"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN last_seen_at >= ? THEN 1 ELSE 0 END), 0) AS today,
			COALESCE(SUM(CASE WHEN last_seen_at >= ? THEN 1 ELSE 0 END), 0) AS week
		FROM users`), today, week)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{Total: row.Total, ActiveToday: row.Today, ActiveThisWeek: row.Week}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
