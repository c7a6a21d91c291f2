// Package callbacks decodes inline button data produced by telebot.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator splits the key from the payload, and payload parts from each other.
const Separator = "|"

// Parse splits callback data into its key and payload.
//
// Telebot encodes buttons as "\f<unique>|<payload>". When a dedicated handler
// matched, telebot already filled Unique and stripped Data down to the payload;
// generic OnCallback handlers still see the raw form.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ = strings.Cut(raw, Separator)
	return strings.TrimSpace(key), payload
}

// Key returns the callback key of the current update, or "".
func Key(c tele.Context) string {
	key, _ := Parse(c.Callback())
	return key
}

// Payload returns the callback payload of the current update, or "".
func Payload(c tele.Context) string {
	_, payload := Parse(c.Callback())
	return payload
}

// PayloadParts splits the payload on Separator. It reports false when the
// payload does not have exactly n parts.
func PayloadParts(c tele.Context, n int) ([]string, bool) {
	p := Payload(c)
	if p == "" {
		return nil, false
	}
	parts := strings.Split(p, Separator)
	return parts, len(parts) == n
}

// Data encodes key and payload parts the same way telebot does for buttons.
func Data(key string, parts ...string) string {
	if len(parts) == 0 {
		return "\f" + key
	}
	return "\f" + key + Separator + strings.Join(parts, Separator)
}
