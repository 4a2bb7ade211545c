package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/suggestbot/internal/action"
	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/session"
)

const placeholder = "https://example.org/placeholder.png"

func sessionWith(n int) *session.UserSession {
	s := session.New(1, 1, time.Now())
	results := make([]catalog.SearchResult, n)
	for i := range results {
		results[i] = catalog.SearchResult{ID: fmt.Sprintf("tt%d", i), Title: fmt.Sprintf("Movie %d", i), Year: 1990 + i}
	}
	s.SetResults(results)
	s.Locations.Push(session.StepName)
	return s
}

func tokens(buttons []Button) []string {
	out := make([]string, len(buttons))
	for i, b := range buttons {
		out[i] = b.Token
	}
	return out
}

func TestItemButtonsFollowCursor(t *testing.T) {
	r := New(placeholder)
	for n := 1; n <= 6; n++ {
		s := sessionWith(n)
		for idx := 0; idx < n; idx++ {
			s.Index = idx
			d, err := r.Render(session.StepName, s)
			require.NoError(t, err)
			msg, ok := d.(SendNewMessage)
			require.True(t, ok, "expected SendNewMessage, got %T", d)

			want := []string{action.TokenThisIsIt}
			if !s.IsLast() {
				want = append(want, action.TokenNext)
			}
			if !s.IsFirst() {
				want = append(want, action.TokenPrevious)
			}
			want = append(want, action.TokenCancel)
			assert.Equal(t, want, tokens(msg.Buttons), "n=%d idx=%d", n, idx)

			assert.Equal(t, idx < n-1, contains(msg.Buttons, action.TokenNext), "next n=%d idx=%d", n, idx)
			assert.Equal(t, idx > 0, contains(msg.Buttons, action.TokenPrevious), "previous n=%d idx=%d", n, idx)
		}
	}
}

func contains(buttons []Button, token string) bool {
	for _, b := range buttons {
		if b.Token == token {
			return true
		}
	}
	return false
}

func TestRenderNameCaptionAndPlaceholder(t *testing.T) {
	r := New(placeholder)
	s := sessionWith(2)
	s.Results[0].Year = -1
	s.Results[0].ImageRef = "N/A"

	d, err := r.Render(session.StepName, s)
	require.NoError(t, err)
	msg := d.(SendNewMessage)
	assert.Equal(t, "Is this the movie you meant?\nName - Movie 0\nYear - unknown", msg.Caption)
	assert.Equal(t, placeholder, msg.ImageRef)

	s.MessageID = 77
	s.Results[1].ImageRef = "https://img/1.jpg"
	s.Index = 1
	d, err = r.Render(session.StepName, s)
	require.NoError(t, err)
	edit, ok := d.(EditMessage)
	require.True(t, ok)
	assert.Equal(t, 77, edit.MessageID)
	assert.Equal(t, "https://img/1.jpg", edit.ImageRef)
}

func detailSession() *session.UserSession {
	s := sessionWith(1)
	s.MessageID = 5
	s.Detail = &catalog.DetailRecord{
		ID:             "tt0",
		Title:          "Heat",
		Year:           1995,
		RuntimeMinutes: 170,
		Genres:         []string{"Action", "Crime"},
		Directors:      []string{"Michael Mann"},
		Actors:         []string{"Al Pacino", "Robert De Niro"},
	}
	s.Locations.Push(session.StepRate)
	return s
}

func TestRenderRate(t *testing.T) {
	r := New(placeholder)
	d, err := r.Render(session.StepRate, detailSession())
	require.NoError(t, err)
	edit := d.(EditMessage)
	assert.Equal(t, 5, edit.MessageID)
	assert.Contains(t, edit.Caption, "Title: Heat\nYear: 1995\nTime: 170 min\nGenres: Action, Crime\nDirectors: Michael Mann\nActors: Al Pacino, Robert De Niro")
	assert.Equal(t, placeholder, edit.ImageRef)
	require.Len(t, edit.Buttons, 7)
	for n := 0; n <= 5; n++ {
		assert.Equal(t, action.RateToken(n), edit.Buttons[n].Token)
		assert.Equal(t, Stars(n), edit.Buttons[n].Label)
	}
	assert.Equal(t, action.TokenCancel, edit.Buttons[6].Token)
}

func TestRenderDescription(t *testing.T) {
	r := New(placeholder)
	s := detailSession()
	_, err := r.Render(session.StepDescription, s)
	require.ErrorIs(t, err, ErrIncomplete)

	s.Rating, s.HasRating = 3, true
	d, err := r.Render(session.StepDescription, s)
	require.NoError(t, err)
	edit := d.(EditMessage)
	assert.Contains(t, edit.Caption, "Rating: ★★★☆☆")
	assert.Equal(t, []string{action.TokenSuggest, action.TokenCancel}, tokens(edit.Buttons))
}

func TestRenderIncomplete(t *testing.T) {
	r := New(placeholder)
	s := session.New(1, 1, time.Now())
	for _, step := range []session.Step{session.StepName, session.StepRate, session.StepDescription, session.StepURL} {
		_, err := r.Render(step, s)
		assert.ErrorIs(t, err, ErrIncomplete, step.String())
	}
	_, err := r.Render(session.StepName, nil)
	assert.ErrorIs(t, err, ErrIncomplete)

	d, err := r.Render(session.StepInitial, s)
	require.NoError(t, err)
	assert.Equal(t, SendNewMessage{Caption: MenuText}, d)
}

// parseStars reads a star string back into a rating.
func parseStars(s string) (int, bool) {
	full := strings.Count(s, starFull)
	empty := strings.Count(s, starEmpty)
	if full+empty != action.MaxRating || s != Stars(full) {
		return 0, false
	}
	return full, true
}

func TestStarsRoundTrip(t *testing.T) {
	for n := 0; n <= 5; n++ {
		got, ok := parseStars(Stars(n))
		require.True(t, ok)
		assert.Equal(t, n, got)
	}
	assert.Equal(t, "☆☆☆☆☆", Stars(-4))
	assert.Equal(t, "★★★★★", Stars(12))

	for _, bad := range []string{"", "★★", "☆★☆☆☆", "★★★★★★"} {
		_, ok := parseStars(bad)
		assert.False(t, ok, bad)
	}
}

func TestConfirmation(t *testing.T) {
	r := New(placeholder)
	s := detailSession()
	c := r.Confirmation(s)
	assert.Equal(t, 5, c.MessageID)
	assert.Equal(t, "Thanks! Your suggestion of Heat was sent.", c.Caption)
	assert.Empty(t, c.Buttons)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
