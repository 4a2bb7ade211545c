// Package suggestion stores the final record a user submits at the end of
// the flow.
package suggestion

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/suggestbot/internal/catalog"
)

// ErrInvalid is returned for records missing their required fields.
var ErrInvalid = errors.New("suggestion: invalid record")

// Suggestion is one submitted recommendation.
type Suggestion struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	ItemID    string    `db:"item_id"`
	Title     string    `db:"title"`
	Year      int       `db:"year"`
	Rating    int       `db:"rating"`
	CreatedAt time.Time `db:"created_at"`
}

// New builds a suggestion for detail with a fresh random ID.
func New(userID, chatID int64, detail catalog.DetailRecord, rating int, now time.Time) Suggestion {
	return Suggestion{
		ID:        uuid.New(),
		UserID:    userID,
		ChatID:    chatID,
		ItemID:    detail.ID,
		Title:     detail.Title,
		Year:      detail.Year,
		Rating:    rating,
		CreatedAt: now.UTC(),
	}
}

// Validate checks the fields every sink relies on.
func (s Suggestion) Validate() error {
	switch {
	case s.ID == uuid.Nil:
		return errors.Join(ErrInvalid, errors.New("missing id"))
	case s.UserID == 0:
		return errors.Join(ErrInvalid, errors.New("missing user id"))
	case s.ItemID == "":
		return errors.Join(ErrInvalid, errors.New("missing item id"))
	case s.Rating < 0 || s.Rating > 5:
		return errors.Join(ErrInvalid, errors.New("rating out of range"))
	}
	return nil
}

// Publisher delivers a finished suggestion somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, s Suggestion) error
}
