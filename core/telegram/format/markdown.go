// Package format escapes user supplied text for Telegram parse modes.
package format

import "strings"

const (
	mdV1Specials = "_*`["
	mdV2Specials = "_*[]()~`>#+-=|{}.!"
)

// EscapeMarkdownV2 prefixes every MarkdownV2 reserved character with a backslash,
// so "a_b*c" becomes `a\_b\*c`. Backslashes themselves are escaped as well.
func EscapeMarkdownV2(text string) string {
	return escape(text, mdV2Specials+`\`)
}

// EscapeMarkdown escapes the legacy Markdown entities.
func EscapeMarkdown(text string) string {
	return escape(text, mdV1Specials)
}

func escape(text, specials string) string {
	if !strings.ContainsAny(text, specials) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DerefString returns *s, or def when s is nil.
func DerefString(s *string, def string) string {
	if s != nil {
		return *s
	}
	return def
}
