package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/imagebot/core/config"
)

func TestBuildPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: "WEBHOOK"},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	}
	p, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", p.Listen)
	assert.Equal(t, "https://bot.example.com/hook", p.Endpoint.PublicURL)
}

func TestBuildPollerLongPoll(t *testing.T) {
	p, ok := BuildPoller(PollerOptions{RunMode: coreconfig.RunModeLongpoll}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, p.Timeout)

	p, ok = BuildPoller(PollerOptions{LongPollTimeoutSeconds: 30}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, p.Timeout)
}
