package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.Local)
	for _, in := range []string{
		"2025-03-07",
		"2025-3-7",
		" 07.03.2025 ",
		"7.3.2025",
		"07/03/2025",
		"07.03.25",
		"2025-03-07 10:30",
		"2025-03-07T10:30:00Z",
	} {
		got, ok := ParseDate(in)
		if assert.True(t, ok, in) {
			assert.True(t, want.Equal(got), "%s -> %s", in, got)
		}
	}

	for _, in := range []string{"", "tomorrow", "31.02.2025", "2025/03/07"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}
