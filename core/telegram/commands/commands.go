// Package commands describes slash commands exposed through the registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Usage is an optional argument synopsis shown by /help, e.g. "on|off".
	Usage     string
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}
