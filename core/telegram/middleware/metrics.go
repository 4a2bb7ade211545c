package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type countersKey struct{}

const countersStoreKey = "metrics"

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	messages atomic.Int32
	kb       atomic.Bool
}

// Track records one outbound message on the counters carried by ctx.
// Contexts without counters are ignored.
func Track(ctx context.Context, hasKB bool) {
	if ctx == nil {
		return
	}
	ct, ok := ctx.Value(countersKey{}).(*Counters)
	if !ok {
		return
	}
	ct.messages.Add(1)
	if hasKB {
		ct.kb.Store(true)
	}
}

// MessageMetricsMiddleware attaches fresh Counters to the update. Transports
// report through Track using the request context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ct := &Counters{}
		c.Set(countersStoreKey, ct)
		ctx := tghelpers.BuildContext(c)
		tghelpers.StoreContext(c, context.WithValue(ctx, countersKey{}, ct))
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	ct, ok := c.Get(countersStoreKey).(*Counters)
	if !ok {
		return 0, false
	}
	return int(ct.messages.Load()), ct.kb.Load()
}
