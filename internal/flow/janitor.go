package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/suggestbot/core/logger"
	"github.com/m3rciful/suggestbot/internal/session"
)

// Sweep removes sessions untouched for longer than ttl. In-flight catalog
// results for removed sessions are discarded on return.
func (m *Machine) Sweep(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	return m.store.Sweep(func(s *session.UserSession) bool {
		return s.UpdatedAt.Before(cutoff)
	})
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (m *Machine) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if n := m.Sweep(ttl); n > 0 {
				logger.Info(ctx, component, "flow.janitor",
					slog.String("status", "ok"),
					slog.Int("count", n),
					slog.Int("sessions", m.Sessions()),
					slog.Duration("duration", logger.Took(start)),
				)
			}
		}
	}
}
