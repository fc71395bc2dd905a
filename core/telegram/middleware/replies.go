package middleware

import tele "gopkg.in/telebot.v4"

const repliesSlot = "bakery.replies"

// Replies counts what a handler sent back for one update.
type Replies struct {
	Messages int
	Keyboard bool
}

// RepliesFrom returns the counters collected by CountReplies for c.
func RepliesFrom(c tele.Context) Replies {
	if r, ok := c.Get(repliesSlot).(*Replies); ok && r != nil {
		return *r
	}
	return Replies{}
}

// CountReplies wraps the context so successful sends and edits made through
// it are counted for the handler summary line.
func CountReplies(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		r := &Replies{}
		c.Set(repliesSlot, r)
		return next(&countingContext{Context: c, r: r})
	}
}

type countingContext struct {
	tele.Context
	r *Replies
}

func (cc *countingContext) track(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	cc.r.Messages++
	if carriesMarkup(opts) {
		cc.r.Keyboard = true
	}
	return nil
}

func carriesMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

func (cc *countingContext) Send(what interface{}, opts ...interface{}) error {
	return cc.track(cc.Context.Send(what, opts...), opts)
}

func (cc *countingContext) Reply(what interface{}, opts ...interface{}) error {
	return cc.track(cc.Context.Reply(what, opts...), opts)
}

func (cc *countingContext) Edit(what interface{}, opts ...interface{}) error {
	return cc.track(cc.Context.Edit(what, opts...), opts)
}

func (cc *countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return cc.track(cc.Context.EditOrSend(what, opts...), opts)
}

func (cc *countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return cc.track(cc.Context.EditOrReply(what, opts...), opts)
}
