package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"raw with payload", &tele.Callback{Data: "\fimg_set|aspect|16:9"}, "img_set", "aspect|16:9"},
		{"raw without payload", &tele.Callback{Data: "\fimg_main"}, "img_main", ""},
		{"unique already resolved", &tele.Callback{Unique: "settings_notif", Data: "on"}, "settings_notif", "on"},
		{"plain data", &tele.Callback{Data: "prompt_cancel"}, "prompt_cancel", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := Parse(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

func TestDataRoundTripsThroughParse(t *testing.T) {
	key, payload := Parse(&tele.Callback{Data: Data("img_set", "model", "gemini-2.5-flash-image")})
	assert.Equal(t, "img_set", key)
	assert.Equal(t, "model|gemini-2.5-flash-image", payload)
	assert.Equal(t, "\fimg_back", Data("img_back"))
}
