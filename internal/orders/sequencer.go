package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/m3rciful/bakerybot/core/fsutil"
	"github.com/m3rciful/bakerybot/core/logger"
)

// Counter is the persisted state of the order sequence.
// LastResetPeriod encodes the calendar month as YYYYMM.
type Counter struct {
	Counter         int `json:"counter"`
	LastResetPeriod int `json:"last_reset_period"`
}

// SequencerOptions tunes a Sequencer. Zero values select time.Now and time.Local.
type SequencerOptions struct {
	Now      func() time.Time
	Location *time.Location
}

// Sequencer hands out month-scoped order numbers of the form #DDMMYY/NNN.
//
// The counter file is read once and the in-memory counter is authoritative
// afterwards. Every increment is persisted before the number is returned; a
// failed write is logged and the sequence continues from memory, so numbers
// may repeat after a crash that follows such a failure.
type Sequencer struct {
	path string
	now  func() time.Time
	loc  *time.Location

	mu     sync.Mutex
	state  Counter
	loaded bool
}

// NewSequencer returns a sequencer persisting to path.
func NewSequencer(path string, opts SequencerOptions) *Sequencer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Sequencer{path: path, now: opts.Now, loc: opts.Location}
}

// Next reserves the next order number. It fails only when ctx is done.
func (s *Sequencer) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("orders: sequence: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.state = s.readCounter(ctx)
		s.loaded = true
	}

	now := s.now().In(s.loc)
	current := period(now)
	if s.state.LastResetPeriod != current {
		s.state = Counter{Counter: 0, LastResetPeriod: current}
	}
	s.state.Counter++

	if err := s.writeCounter(s.state); err != nil {
		logger.Error(ctx, "orders.sequencer", "persist",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.Int("count", s.state.Counter),
			slog.Any("err", err),
		)
	}
	return FormatNumber(now, s.state.Counter), nil
}

// FormatNumber renders an order number for the given day and sequence value.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("#%s/%03d", day.Format("020106"), seq)
}

func period(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// readCounter treats a missing or unparsable file as a fresh counter.
func (s *Sequencer) readCounter(ctx context.Context) Counter {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "orders.sequencer", "load",
				slog.String("status", "fail"),
				slog.String("path", s.path),
				slog.Any("err", err),
			)
		}
		return Counter{}
	}
	var c Counter
	if err := json.Unmarshal(data, &c); err != nil || c.Counter < 0 {
		logger.Warn(ctx, "orders.sequencer", "load",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("cause", "unparsable counter file"),
		)
		return Counter{}
	}
	return c
}

func (s *Sequencer) writeCounter(c Counter) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o644)
}
