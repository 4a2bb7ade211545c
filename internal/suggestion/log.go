package suggestion

import (
	"context"
	"log/slog"

	"github.com/m3rciful/suggestbot/core/logger"
)

// LogPublisher writes suggestions to the structured log. It is used when no
// database is configured.
type LogPublisher struct{}

// Publish validates s and logs it.
func (LogPublisher) Publish(ctx context.Context, s Suggestion) error {
	if err := s.Validate(); err != nil {
		return err
	}
	logger.Info(ctx, "suggestion", "suggestion.published",
		slog.String("status", "ok"),
		slog.String("sink", "log"),
		slog.String("suggestion_id", s.ID.String()),
		slog.String("item_id", s.ItemID),
		slog.String("title", s.Title),
		slog.Int("rating", s.Rating),
	)
	return nil
}
