package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// userLocks hands out one mutex per user and forgets it once nobody holds or waits for it.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (u *userLocks) acquire(userID int64) *userLock {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &userLock{}
		u.locks[userID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return l
}

func (u *userLocks) release(userID int64, l *userLock) {
	l.mu.Unlock()

	u.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(u.locks, userID)
	}
	u.mu.Unlock()
}

// SerializeUserMiddleware runs updates of the same user one at a time so cart
// mutations and checkouts are applied in arrival order. Updates of different
// users still run concurrently.
func SerializeUserMiddleware() tele.MiddlewareFunc {
	locks := &userLocks{locks: make(map[int64]*userLock)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			l := locks.acquire(user.ID)
			defer locks.release(user.ID, l)
			return next(c)
		}
	}
}
