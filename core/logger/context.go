package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyMeta ctxKey = iota
	keyLogger
)

// updateMeta carries the identifiers of the Telegram update being processed.
type updateMeta struct {
	rid      string
	handler  string
	updateID int
	userID   int64
	chatID   int64
}

func metaFrom(ctx context.Context) updateMeta {
	if ctx == nil {
		return updateMeta{}
	}
	m, _ := ctx.Value(keyMeta).(updateMeta)
	return m
}

func withMeta(ctx context.Context, fn func(*updateMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, keyMeta, m)
}

// WithLogger stores log in ctx. FromContext returns it to downstream layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *updateMeta) { m.rid = rid })
}

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *updateMeta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler records which handler is serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *updateMeta) { m.handler = handler })
}

// RIDFrom returns the correlation id or "".
func RIDFrom(ctx context.Context) string { return metaFrom(ctx).rid }

// HandlerFrom returns the handler name or "".
func HandlerFrom(ctx context.Context) string { return metaFrom(ctx).handler }

// UserIDFrom returns the Telegram user id or 0.
func UserIDFrom(ctx context.Context) int64 { return metaFrom(ctx).userID }

// ChatIDFrom returns the chat id or 0.
func ChatIDFrom(ctx context.Context) int64 { return metaFrom(ctx).chatID }

// UpdateIDFrom returns the update id or 0.
func UpdateIDFrom(ctx context.Context) int { return metaFrom(ctx).updateID }

// contextFields copies identifiers from ctx into fields without overriding explicit attributes.
func contextFields(ctx context.Context, fields map[string]any) {
	m := metaFrom(ctx)
	setIfAbsent := func(key string, val any, ok bool) {
		if !ok {
			return
		}
		if _, exists := fields[key]; !exists {
			fields[key] = val
		}
	}
	setIfAbsent("rid", m.rid, m.rid != "")
	setIfAbsent("handler", m.handler, m.handler != "")
	setIfAbsent("update_id", m.updateID, m.updateID != 0)
	setIfAbsent("user_id", m.userID, m.userID != 0)
	setIfAbsent("chat_id", m.chatID, m.chatID != 0)
}
