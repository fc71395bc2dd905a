package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a registered bot command. Admin-only and hidden commands are
// routed normally but left out of the Telegram command menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Visible reports whether the command belongs in the public menu.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}

// Matches reports whether name is one of the aliases. Aliases may be given
// with or without the leading slash.
func (c Command) Matches(name string) bool {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return false
	}
	for _, alias := range c.Aliases {
		if strings.TrimPrefix(alias, "/") == name {
			return true
		}
	}
	return false
}
