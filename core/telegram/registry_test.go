package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Show help", Aliases: []string{"h"}})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "No slash"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Duplicate"})

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, []tele.Command{{Text: "help", Description: "Show help"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("help")
	require.True(t, ok)
	assert.Equal(t, "/help", key)
	assert.Equal(t, "Show help", cmd.Description)

	key, _, ok = reg.LookupCommand("/H")
	require.True(t, ok)
	assert.Equal(t, "/help", key)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("img_main", noop))
	require.NoError(t, reg.RegisterCallback("img_back", noop))
	assert.Error(t, reg.RegisterCallback("img_main", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Error(t, reg.RegisterCallback("x", nil))

	assert.Equal(t, []string{"img_back", "img_main"}, reg.ListCallbacks())
	_, ok := reg.GetCallback("img_main")
	assert.True(t, ok)
	assert.NotNil(t, reg.CallbackNotFound())
}
