package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"raw with payload", &tele.Callback{Data: "\fcart_rm|42"}, "cart_rm", "42"},
		{"raw without payload", &tele.Callback{Data: "\fcart_clear"}, "cart_clear", ""},
		{"payload keeps separators", &tele.Callback{Data: "plain|a|b"}, "plain", "a|b"},
		{"matched by telebot", &tele.Callback{Unique: "cart_rm", Data: "42"}, "cart_rm", "42"},
		{"nil", nil, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := Split(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}
