package netutil

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	var seen []int
	calls, err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	boom := errors.New("boom")
	calls, err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(context.Context, int) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoZeroPolicyCallsOnce(t *testing.T) {
	calls, err := Do(context.Background(), Policy{}, func(context.Context, int) error {
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls, err := Do(ctx, Policy{Attempts: 5, Delay: time.Hour}, func(context.Context, int) error {
		cancel()
		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("plain")))
	assert.True(t, ShouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestDoStopsOnPermanentError(t *testing.T) {
	bad := errors.New("404 not found")
	calls, err := Do(context.Background(), Policy{Attempts: 5, Delay: time.Millisecond}, func(context.Context, int) error {
		return Permanent(bad)
	})
	assert.Same(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}
