package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio is an immutable sampling setting: keep num out of every den events.
type ratio struct{ num, den uint64 }

// ratioSampler thins debug output without locking the hot path.
type ratioSampler struct {
	setting atomic.Pointer[ratio]
	counter atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set replaces the ratio. Non-positive values disable sampling.
func (s *ratioSampler) Set(numerator, denominator int) {
	s.counter.Store(0)
	if numerator <= 0 || denominator <= 0 {
		s.setting.Store(nil)
		return
	}
	numerator = min(numerator, denominator)
	s.setting.Store(&ratio{num: uint64(numerator), den: uint64(denominator)})
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	r := s.setting.Load()
	if r == nil {
		return true
	}
	n := (s.counter.Add(1) - 1) % r.den
	return n < r.num
}

// parseRatio accepts "n/d" or "d" (meaning 1/d).
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
