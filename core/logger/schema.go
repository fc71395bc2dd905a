package logger

import "strings"

// Level names as written to the level key.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

func levelName(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return strings.ToUpper(level)
}

// vocab is the closed value set of an enumerated key. Unknown status values
// are kept so nothing is lost; unknown cache and outcome values are dropped.
type vocab struct {
	values  []string
	dropBad bool
}

var enums = map[string]vocab{
	"status":  {values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}},
	"cache":   {values: []string{"hit", "miss", "refresh", "stale"}, dropBad: true},
	"outcome": {values: []string{"ok", "fail", "cancelled", "rate_limited", "rejected"}, dropBad: true},
}

func (v vocab) normalize(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range v.values {
		if s == known {
			return s, true
		}
	}
	return s, false
}

func normalizeEnums(rec map[string]any) {
	for key, v := range enums {
		raw, ok := rec[key].(string)
		if !ok || raw == "" {
			continue
		}
		switch norm, known := v.normalize(raw); {
		case known || !v.dropBad:
			rec[key] = norm
		default:
			delete(rec, key)
		}
	}
}

// defaultKeyOrder places the keys people scan for first; the rest follow
// alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"cb_key", "kind", "outcome", "duration_ms", "messages", "kb",
	"order_number", "items", "total", "channel", "channels",
	"version", "products", "products_count", "categories_count", "cache",
	"method", "path", "http_code", "url",
	"mode", "listen", "public_url", "db", "host", "port",
	"attempt", "attempts", "backoff_ms", "retryable",
	"err", "err_code", "cause", "reason",
	"payload", "username", "lang",
}
