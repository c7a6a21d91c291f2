package router

import (
	"log/slog"
	"strings"
	"time"

	tg "github.com/m3rciful/imagebot/core/telegram"
	tghelpers "github.com/m3rciful/imagebot/core/telegram/helpers"
	"github.com/m3rciful/imagebot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Interceptor gets the first look at free text. It reports whether it consumed
// the message; consumed messages are not routed any further.
type Interceptor struct {
	Name   string
	Handle func(c tele.Context) (bool, error)
}

// TextOptions controls routing of free text and documents.
type TextOptions struct {
	// Interceptors run in order for text that does not start with "/".
	Interceptors    []Interceptor
	UnknownCommand  tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds the OnText and OnDocument routes.
//
// Registered commands never reach OnText because telebot dispatches them
// directly. Text that still starts with "/" is an unknown command and is never
// offered to interceptors. Other text goes to the interceptors, then to
// command aliases, then to the registry or options fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		msg := strings.TrimSpace(c.Text())

		if strings.HasPrefix(msg, "/") {
			if key, cmd, ok := lookup(reg, msg); ok {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error { return cmd(c) })
			}
			if opts.UnknownCommand != nil {
				return handleWithSummary(c, "unknown_command", func() error { return opts.UnknownCommand(c) })
			}
			logHandlerSummary(c, "unknown_command", start, "skip", nil)
			return nil
		}

		for _, ic := range opts.Interceptors {
			if ic.Handle == nil {
				continue
			}
			name := "text." + normalizeHandlerName(ic.Name)
			tghelpers.WithHandler(c, name)
			handled, err := ic.Handle(c)
			if handled || err != nil {
				logHandlerSummary(c, name, start, "", err, slog.String("op", "intercept"))
				return err
			}
		}

		if key, cmd, ok := lookup(reg, msg); ok {
			return handleWithSummary(c, "alias."+normalizeHandlerName(key), func() error { return cmd(c) })
		}
		if reg != nil && reg.TextFallback() != nil {
			return handleWithSummary(c, "fallback", func() error { return reg.TextFallback()(c) })
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", func() error { return opts.UnknownText(c) })
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	doc := func(c tele.Context) error {
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", func() error { return opts.UnknownDocument(c) })
		}
		logHandlerSummary(c, "unexpected_document", time.Now(), "skip", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}

// lookup resolves "/name", "/name@bot" and bare aliases to a registered handler.
func lookup(reg *tg.Registry, text string) (string, tele.HandlerFunc, bool) {
	if reg == nil || text == "" {
		return "", nil, false
	}
	word, _, _ := strings.Cut(text, " ")
	if strings.HasPrefix(word, "/") {
		word, _, _ = strings.Cut(word, "@")
	}
	key, cmd, ok := reg.LookupCommand(word)
	if !ok || cmd.Handler == nil {
		return "", nil, false
	}
	if !strings.HasPrefix(word, "/") && !hasAlias(cmd.Aliases, word) {
		return "", nil, false
	}
	return key, cmd.Handler, true
}

func hasAlias(aliases []string, word string) bool {
	for _, a := range aliases {
		if strings.EqualFold(strings.TrimPrefix(a, "/"), word) {
			return true
		}
	}
	return false
}

// Fallbacks builds text and callback options whose last-resort handlers come from p.
func Fallbacks(p ui.FallbackProvider, interceptors ...Interceptor) (TextOptions, CallbackOptions) {
	text := TextOptions{Interceptors: interceptors}
	if p == nil {
		return text, CallbackOptions{}
	}
	text.UnknownText = p.UnknownText()
	text.UnknownDocument = p.UnknownDocument()
	return text, CallbackOptions{NotFound: p.UnknownCallback()}
}
