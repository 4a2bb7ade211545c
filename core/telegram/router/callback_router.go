package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/suggestbot/core/logger"
	tg "github.com/m3rciful/suggestbot/core/telegram"
	"github.com/m3rciful/suggestbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"
	"github.com/m3rciful/suggestbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns the OnCallback route that dispatches through the
// registry's ordered callback table. Matched callbacks are acknowledged
// before the handler runs; unmatched ones go to the not-found handler, which
// answers them itself.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.Key(c)
		extras := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 128))}

		matcher, cbHandler, ok := reg.MatchCallback(key)
		if !ok {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, "callback.unknown", start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		_ = tghelpers.Respond(c)
		name := "callback." + normalizeHandlerName(matcher.Pattern)
		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
