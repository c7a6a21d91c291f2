package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const dedupWindow = 10 * time.Second

// seenUpdates remembers recently logged update ids; routes wrap handlers with
// LoggerMiddleware on top of the global chain, so one update passes twice.
var seenUpdates = struct {
	sync.Mutex
	at map[int]time.Time
}{at: make(map[int]time.Time)}

func firstSighting(updateID int) bool {
	now := time.Now()
	seenUpdates.Lock()
	defer seenUpdates.Unlock()
	for id, ts := range seenUpdates.at {
		if now.Sub(ts) > dedupWindow {
			delete(seenUpdates.at, id)
		}
	}
	if _, ok := seenUpdates.at[updateID]; ok {
		return false
	}
	seenUpdates.at[updateID] = now
	return true
}

// LoggerMiddleware assigns the request id, stores the update context and logs
// one sampled debug line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		updateID, userID, chatID := tghelpers.Identity(c)
		rid := logger.BuildRID(updateID, chatID, userID)
		c.Set(tghelpers.RIDKey, rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.TG)
		if prev, ok := tghelpers.ContextFrom(c); ok {
			if h := logger.HandlerFrom(prev); h != "" {
				ctx = logger.WithHandler(ctx, h)
			}
		}
		tghelpers.StoreContext(c, ctx)

		if firstSighting(updateID) && logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	if cb := c.Callback(); cb != nil {
		key, payload := callbacks.Parse(cb)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	} else if c.Message() != nil {
		attrs = append(attrs, slog.Int("text_len", len([]rune(c.Text()))))
	}
	return attrs
}
