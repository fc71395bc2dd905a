package helpers

import (
	"strings"
	"time"
)

// dateLayouts are the date spellings accepted from forms and chat input,
// ISO first since the web app sends that.
var dateLayouts = [...]string{
	time.DateOnly,
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.06",
}

// ParseDate reads a calendar date typed by a user. A trailing time of day
// after a space is ignored. The result is midnight in time.Local.
func ParseDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
