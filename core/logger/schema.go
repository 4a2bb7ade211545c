package logger

import (
	"log/slog"
	"strings"
)

// Level names as written in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// outcomes lists the allowed outcome values. Unknown outcomes are dropped;
// statuses are free-form and only lower-cased.
var outcomes = map[string]struct{}{
	"ok": {}, "fail": {}, "noop": {}, "cancelled": {}, "rate_limited": {},
}

// parseLevel maps a config or record level name onto slog.Level.
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	}
	return LevelError
}

// enforce normalizes the enumerated fields of e in place.
func (e entry) enforce() {
	if v, ok := e.str("level"); ok {
		if l, known := parseLevel(v); known {
			e["level"] = levelName(l)
		} else {
			e["level"] = strings.ToUpper(v)
		}
	}
	if v, ok := e.str("status"); ok && v != "" {
		e["status"] = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := e.str("outcome"); ok && v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if _, known := outcomes[v]; known {
			e["outcome"] = v
		} else {
			delete(e, "outcome")
		}
	}
}

// defaultKeyOrder puts identity first, then flow fields, then errors.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"action", "step", "from_step", "to_step", "epoch", "outcome",
	"duration_ms", "messages", "kb", "index", "count",
	"item_id", "query", "rating", "payload", "lang", "username",
	"mode", "listen", "public_url", "http_code",
	"db", "host", "port",
	"err", "err_code", "cause", "attempts",
}
