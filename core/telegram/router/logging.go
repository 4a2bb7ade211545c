package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/suggestbot/core/logger"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"
	"github.com/m3rciful/suggestbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// quiet is implemented by errors describing an ignored update rather than a
// failure, e.g. a callback from a stale message.
type quiet interface{ Quiet() bool }

func isQuiet(err error) bool {
	var q quiet
	return errors.As(err, &q) && q.Quiet()
}

// handleWithSummary runs fn and writes one handler.handled line. Quiet errors
// are logged and swallowed; others are returned for the bot's OnError hook.
func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	logHandlerSummary(c, handlerName, start, err, extras...)
	if isQuiet(err) {
		return nil
	}
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status, outcome, level := "ok", "ok", slog.LevelInfo
	switch {
	case err == nil:
	case isQuiet(err):
		status, outcome, level = "skip", "noop", slog.LevelDebug
	default:
		status, outcome = "fail", "fail"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := strings.TrimSpace(logger.ErrCode(err)); code != "" {
		return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "TELEGRAM_API"
	}
	return "INTERNAL"
}
