package middleware

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middlewares touch.
type fakeContext struct {
	tele.Context
	upd   tele.Update
	user  *tele.User
	store map[string]any
	sent  []any
}

func newFake(userID int64, upd tele.Update) *fakeContext {
	f := &fakeContext{upd: upd, store: map[string]any{}}
	if userID != 0 {
		f.user = &tele.User{ID: userID}
	}
	return f
}

func (f *fakeContext) Update() tele.Update   { return f.upd }
func (f *fakeContext) Sender() *tele.User    { return f.user }
func (f *fakeContext) Chat() *tele.Chat      { return nil }
func (f *fakeContext) Text() string          { return "" }
func (f *fakeContext) Get(key string) any    { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}
func (f *fakeContext) Edit(any, ...any) error { return errors.New("message is not modified") }

func TestRecoverReturnsError(t *testing.T) {
	h := Recover(func(tele.Context) error { panic("boom") })
	err := h(newFake(1, tele.Update{ID: 7}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, Recover(func(tele.Context) error { return nil })(newFake(1, tele.Update{})))
}

func TestAdminOnly(t *testing.T) {
	var ran, rejected atomic.Int32
	next := func(tele.Context) error { ran.Add(1); return nil }
	reject := func(tele.Context) error { rejected.Add(1); return nil }

	gate := AdminOnly(42, reject)(next)
	require.NoError(t, gate(newFake(42, tele.Update{})))
	require.NoError(t, gate(newFake(7, tele.Update{})))
	require.NoError(t, gate(newFake(0, tele.Update{})))
	assert.EqualValues(t, 1, ran.Load())
	assert.EqualValues(t, 2, rejected.Load())

	closed := AdminOnly(0, nil)(next)
	require.NoError(t, closed(newFake(42, tele.Update{})))
	assert.EqualValues(t, 1, ran.Load())
}

func TestCountReplies(t *testing.T) {
	c := newFake(1, tele.Update{})
	h := CountReplies(func(c tele.Context) error {
		_ = c.Send("one")
		_ = c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
		_ = c.Edit("three")
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, Replies{Messages: 2, Keyboard: true}, RepliesFrom(c))
	assert.Len(t, c.sent, 2)
	assert.Equal(t, Replies{}, RepliesFrom(newFake(1, tele.Update{})))
}

func TestThrottle(t *testing.T) {
	var ran, limited atomic.Int32
	h := Throttle(ThrottleOptions{
		Interval:  time.Hour,
		Exclude:   []string{KindWebApp},
		OnLimited: func(tele.Context) error { limited.Add(1); return nil },
	})(func(tele.Context) error { ran.Add(1); return nil })

	msg := tele.Update{Message: &tele.Message{Text: "hi"}}
	webApp := tele.Update{Message: &tele.Message{WebAppData: &tele.WebAppData{Data: "{}"}}}

	require.NoError(t, h(newFake(1, msg)))
	require.NoError(t, h(newFake(1, msg)))
	require.NoError(t, h(newFake(1, webApp)))
	require.NoError(t, h(newFake(2, msg)))
	require.NoError(t, h(newFake(0, msg)))

	assert.EqualValues(t, 4, ran.Load())
	assert.EqualValues(t, 1, limited.Load())
}

func TestWindowSweepsIdleUsers(t *testing.T) {
	w := &window{every: time.Second, last: map[int64]time.Time{}}
	t0 := time.Now()
	assert.True(t, w.admit(1, t0))
	assert.False(t, w.admit(1, t0.Add(500*time.Millisecond)))
	assert.True(t, w.admit(2, t0.Add(2*time.Minute)))
	assert.NotContains(t, w.last, int64(1))
	assert.Contains(t, w.last, int64(2))
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, KindCallback, UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, KindWebApp, UpdateKind(tele.Update{Message: &tele.Message{WebAppData: &tele.WebAppData{}}}))
	assert.Equal(t, KindMessage, UpdateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, KindOther, UpdateKind(tele.Update{}))
}
