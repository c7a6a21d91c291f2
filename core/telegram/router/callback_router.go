package router

import (
	"log/slog"

	tg "github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every button press through the registry by callback key.
// Handlers that want to show an alert call c.Respond themselves; otherwise the
// spinner is cleared once the handler returns.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
			if h == nil {
				h = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
		}
		return handleWithSummary(c, name, func() error {
			if h == nil {
				return c.Respond()
			}
			err := h(c)
			_ = c.Respond()
			return err
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}
