package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/internal/orders"
)

// Channel is one named notification destination.
type Channel struct {
	Name     string
	Notifier orders.Notifier
}

// Fanout delivers an order to every channel concurrently. One failing channel
// never prevents the others from running.
type Fanout struct {
	channels []Channel
}

// NewFanout keeps the channels with a non-nil notifier.
func NewFanout(channels ...Channel) *Fanout {
	kept := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if isNil(ch.Notifier) {
			continue
		}
		kept = append(kept, ch)
	}
	return &Fanout{channels: kept}
}

// Channels lists the active channel names.
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.Name)
	}
	return names
}

// Notify returns errors.Join of the per-channel failures, each prefixed with
// the channel name, or nil when every channel succeeded.
func (f *Fanout) Notify(ctx context.Context, o orders.PendingOrder) error {
	errs := make([]error, len(f.channels))
	var g errgroup.Group
	for i, ch := range f.channels {
		g.Go(func() error {
			start := time.Now()
			err := notifyOne(ctx, ch, o)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", ch.Name, err)
				logger.Error(ctx, "notify", "deliver",
					slog.String("status", "fail"),
					slog.String("channel", ch.Name),
					slog.String("order_number", o.Number),
					slog.Duration("duration", time.Since(start)),
					slog.Any("err", err),
				)
				return nil
			}
			logger.Info(ctx, "notify", "deliver",
				slog.String("status", "ok"),
				slog.String("channel", ch.Name),
				slog.String("order_number", o.Number),
				slog.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func notifyOne(ctx context.Context, ch Channel, o orders.PendingOrder) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return ch.Notifier.Notify(ctx, o)
}

// isNil catches typed nil pointers such as a (*Email)(nil) from NewEmail.
func isNil(n orders.Notifier) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
