package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn(t *testing.T) {
	m := Column(
		Button{Text: "Remove bun", Key: "cart_rm", Payload: "bun"},
		Button{Text: "Clear", Key: "cart_clear", Payload: "all"},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "cart_rm", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "bun", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "Clear", m.InlineKeyboard[1][0].Text)
}

func TestInlineRows(t *testing.T) {
	m := Inline([]Button{{Text: "a", Key: "k"}, {Text: "b", Key: "k"}}, nil)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Empty(t, m.InlineKeyboard[1])
}

func TestWebApp(t *testing.T) {
	m := WebApp("Open shop", "https://shop.example.com/app")
	assert.True(t, m.ResizeKeyboard)
	require.Len(t, m.ReplyKeyboard, 1)
	require.NotNil(t, m.ReplyKeyboard[0][0].WebApp)
	assert.Equal(t, "https://shop.example.com/app", m.ReplyKeyboard[0][0].WebApp.URL)
}
