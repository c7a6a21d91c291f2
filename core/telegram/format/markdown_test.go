package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	cases := map[string]string{
		"a red fox":  "a red fox",
		"a_b*c":      `a\_b\*c`,
		"[x](y)":     `\[x\]\(y\)`,
		"1+1=2!":     `1\+1\=2\!`,
		"~`>#-|{}.":  "\\~\\`\\>\\#\\-\\|\\{\\}\\.",
		`back\slash`: `back\\slash`,
		"ünïcode_ok": `ünïcode\_ok`,
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeMarkdownV2(in), "input %q", in)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "\\_a\\*b\\`c\\[d]", EscapeMarkdown("_a*b`c[d]"))
	assert.Equal(t, "plain.text!", EscapeMarkdown("plain.text!"))
}

func TestDerefString(t *testing.T) {
	s := "alice"
	assert.Equal(t, "alice", DerefString(&s, "-"))
	assert.Equal(t, "-", DerefString(nil, "-"))
}
