package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/suggestbot/core/logger"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds passed to RateLimitOptions.Exclude.
const (
	KindCallback = "callback"
	KindMessage  = "message"
	KindOther    = "other"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
// PerSecond <= 0 disables limiting.
type RateLimitOptions struct {
	PerSecond float64
	Burst     int
	// Exclude reports update kinds that bypass the limiter.
	Exclude   func(kind string) bool
	OnLimited tele.HandlerFunc
	// IdleTTL drops limiters of users silent for longer; 0 means 10 minutes.
	IdleTTL time.Duration
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter holds one token bucket per user.
type Limiter struct {
	opts  RateLimitOptions
	mu    sync.Mutex
	users map[int64]*userLimiter
	swept time.Time
}

// NewLimiter builds a Limiter from opts.
func NewLimiter(opts RateLimitOptions) *Limiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	return &Limiter{opts: opts, users: make(map[int64]*userLimiter)}
}

// Allow reports whether userID may proceed at now.
func (l *Limiter) Allow(userID int64, now time.Time) bool {
	if l.opts.PerSecond <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.opts.IdleTTL {
		for id, u := range l.users {
			if now.Sub(u.seen) > l.opts.IdleTTL {
				delete(l.users, id)
			}
		}
		l.swept = now
	}
	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(rate.Limit(l.opts.PerSecond), l.opts.Burst)}
		l.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

// Tracked returns the number of users with a live limiter.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// UpdateKind classifies upd for exclusion checks.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	}
	return KindOther
}

// RateLimitMiddleware drops updates from users exceeding their token bucket.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := NewLimiter(opts)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.PerSecond <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if opts.Exclude != nil && opts.Exclude(kind) {
				return next(c)
			}
			if limiter.Allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
