// Package auditlog records command invocations for statistics and history.
package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/imagebot/core/logger"
)

// Entry is one command invocation.
type Entry struct {
	TelegramID int64
	Command    string
	Args       []string
	ChatID     int64
	ChatType   string
}

// CommandCount is a row of TopCommands.
type CommandCount struct {
	Command string `db:"command"`
	Count   int    `db:"count"`
}

// HistoryItem is a row of History.
type HistoryItem struct {
	Command   string    `db:"command"`
	Args      *string   `db:"args"`
	CreatedAt time.Time `db:"created_at"`
}

// Log writes to the command_logs table.
type Log struct {
	db  *sqlx.DB
	now func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a Log over db.
func New(db *sqlx.DB) *Log {
	return &Log{db: db, now: time.Now}
}

// NormalizeCommand strips the "@botname" suffix and lowercases the command.
func NormalizeCommand(cmd string) string {
	cmd, _, _ = strings.Cut(strings.TrimSpace(cmd), "@")
	return strings.ToLower(cmd)
}

// Record stores e. Failures and unknown users are logged, never returned.
func (l *Log) Record(ctx context.Context, e Entry) {
	cmd := NormalizeCommand(e.Command)
	if cmd == "" {
		return
	}
	var args *string
	if joined := strings.Join(e.Args, " "); joined != "" {
		args = &joined
	}
	var userID int64
	err := l.db.GetContext(ctx, &userID, l.db.Rebind(`SELECT id FROM users WHERE telegram_id = ?`), e.TelegramID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Warn(ctx, logger.CompAudit, "audit.record",
			slog.String("status", "fail"),
			slog.String("command", cmd),
			slog.String("reason", "user_not_found"),
		)
		return
	}
	if err == nil {
		_, err = l.db.ExecContext(ctx, l.db.Rebind(`
			INSERT INTO command_logs (user_id, command, args, chat_id, chat_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			userID, cmd, args, e.ChatID, e.ChatType, l.now().UTC())
	}
	if err != nil {
		logger.Warn(ctx, logger.CompAudit, "audit.record",
			slog.String("status", "fail"), slog.String("command", cmd), logger.Err(err))
		return
	}
	logger.Debug(ctx, logger.CompAudit, "audit.record", slog.String("status", "ok"), slog.String("command", cmd))
}

// RecordAsync runs Record in the background, detached from ctx cancellation.
// Entries arriving after Close are dropped.
func (l *Log) RecordAsync(ctx context.Context, e Entry) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		logger.Debug(ctx, logger.CompAudit, "audit.record", slog.String("status", "skip"), slog.String("reason", "closed"))
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer l.wg.Done()
		l.Record(ctx, e)
	}()
}

// Wait blocks until background writes finished.
func (l *Log) Wait() {
	l.wg.Wait()
}

// Close stops accepting async writes and waits for the pending ones.
func (l *Log) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}

// TopCommands returns the most used commands since the given time.
func (l *Log) TopCommands(ctx context.Context, since time.Time, limit int) ([]CommandCount, error) {
	out := []CommandCount{}
	err := l.db.SelectContext(ctx, &out, l.db.Rebind(`
		SELECT command, COUNT(*) AS count
		FROM command_logs
		WHERE created_at >= ?
		GROUP BY command
		ORDER BY count DESC, command ASC
		LIMIT ?`), since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: top commands: %w", err)
	}
	return out, nil
}

// History returns the latest commands of a user, newest first.
func (l *Log) History(ctx context.Context, tgID int64, limit int) ([]HistoryItem, error) {
	out := []HistoryItem{}
	err := l.db.SelectContext(ctx, &out, l.db.Rebind(`
		SELECT c.command, c.args, c.created_at
		FROM command_logs c
		JOIN users u ON u.id = c.user_id
		WHERE u.telegram_id = ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?`), tgID, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: history: %w", err)
	}
	return out, nil
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (l *Log) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, l.db.Rebind(`DELETE FROM command_logs WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("auditlog: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("auditlog: prune: %w", err)
	}
	return n, nil
}
