package logger

import (
	"strings"
	"time"
	"unicode/utf8"
)

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit elements and reports whether truncation happened.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}

// redactedKeys lists attribute keys whose values are customer contact data
// or credentials. They are masked before a record is written.
var redactedKeys = map[string]func(string) string{
	"phone":    MaskPhone,
	"email":    MaskEmail,
	"address":  maskAll,
	"password": maskAll,
	"token":    maskAll,
}

// MaskPhone keeps the last two digits of a phone number.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 2 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-2) + string(digits[len(digits)-2:])
}

// MaskEmail keeps the first rune of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return maskAll(email)
	}
	first, _ := utf8.DecodeRuneInString(email)
	return string(first) + "***" + email[at:]
}

func maskAll(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func redact(fields record) {
	for key, mask := range redactedKeys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			fields[key] = mask(s)
		}
	}
}
