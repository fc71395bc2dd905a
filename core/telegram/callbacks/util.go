// Package callbacks reads the key and payload of inline button presses.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the key and payload of cb. Telebot fills Unique and strips
// the key from Data when a handler bound to that key matched; otherwise Data
// still carries the raw "\f<key>|<payload>" form.
func Split(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key returns the callback key of the update in c, or "".
func Key(c tele.Context) string {
	key, _ := Split(c.Callback())
	return key
}

// Payload returns the callback payload of the update in c, or "".
func Payload(c tele.Context) string {
	_, payload := Split(c.Callback())
	return payload
}
