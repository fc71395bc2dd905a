// Package keyboard builds reply and inline markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button that fires the callback Key with Payload.
type Button struct {
	Text    string
	Key     string
	Payload string
}

func (b Button) inline(m *tele.ReplyMarkup) tele.InlineButton {
	return *m.Data(b.Text, b.Key, b.Payload).Inline()
}

// Inline lays rows of buttons out as an inline keyboard.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for _, row := range rows {
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, b.inline(m))
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}

// Column puts every button on a row of its own.
func Column(buttons ...Button) *tele.ReplyMarkup {
	rows := make([][]Button, len(buttons))
	for i, b := range buttons {
		rows[i] = []Button{b}
	}
	return Inline(rows...)
}

// WebApp is a resized reply keyboard with one button opening the mini app.
// Telegram delivers WebApp.sendData only for apps opened from a reply
// keyboard button, not from inline buttons.
func WebApp(text, url string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(m.Row(m.WebApp(text, &tele.WebApp{URL: url})))
	return m
}
