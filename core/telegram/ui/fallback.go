// Package ui defines the replies a bot gives when nothing else handles an update.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the last-resort handlers: free text no interceptor
// or alias claimed, documents the bot does not accept, and callback keys that
// are not registered (usually buttons from an older deployment).
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
