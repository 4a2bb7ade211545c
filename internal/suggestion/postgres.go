package suggestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/suggestbot/core/logger"
)

const insertSuggestion = `
INSERT INTO suggestions (id, user_id, chat_id, item_id, title, year, rating, created_at)
VALUES (:id, :user_id, :chat_id, :item_id, :title, :year, :rating, :created_at)`

// PostgresStore persists suggestions in the suggestions table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Publish inserts s.
func (p *PostgresStore) Publish(ctx context.Context, s Suggestion) error {
	if err := s.Validate(); err != nil {
		return err
	}
	start := time.Now()
	if _, err := p.db.NamedExecContext(ctx, insertSuggestion, s); err != nil {
		logger.Error(ctx, "suggestion", "suggestion.insert",
			slog.String("status", "fail"),
			slog.String("suggestion_id", s.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("insert suggestion %s: %w", s.ID, err)
	}
	logger.Info(ctx, "suggestion", "suggestion.published",
		slog.String("status", "ok"),
		slog.String("sink", "postgres"),
		slog.String("suggestion_id", s.ID.String()),
		slog.String("item_id", s.ItemID),
		slog.Int("rating", s.Rating),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Count returns the number of stored suggestions.
func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT count(*) FROM suggestions`); err != nil {
		return 0, fmt.Errorf("count suggestions: %w", err)
	}
	return n, nil
}

var (
	_ Publisher = (*PostgresStore)(nil)
	_ Publisher = LogPublisher{}
)
