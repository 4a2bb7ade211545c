package action

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/suggestbot/core/telegram/callbacks"
)

// Callback token grammar. Item-family tokens share the ItemSuffix.
const (
	ItemSuffix  = "_item"
	ratePrefix  = "rate:"
	TokenCancel = "cancel"

	TokenThisIsIt = "this_is_it" + ItemSuffix
	TokenNext     = "next" + ItemSuffix
	TokenPrevious = "previous" + ItemSuffix
	TokenSuggest  = "suggest" + ItemSuffix

	MinRating = 0
	MaxRating = 5
)

var itemKinds = map[string]Kind{
	"this_is_it": KindThisIsIt,
	"next":       KindNext,
	"previous":   KindPrevious,
	"suggest":    KindSuggest,
}

// RateToken returns the callback token for rating n.
func RateToken(n int) string {
	return fmt.Sprintf("%s%d%s", ratePrefix, n, ItemSuffix)
}

// ParseCallback runs the full token routing: the item family first, then
// the exact cancel token. A "\f<unique>|<payload>" envelope is unwrapped and
// the payload ignored.
func ParseCallback(data string) (Action, error) {
	token, _ := callbacks.Split(data)
	if strings.HasSuffix(token, ItemSuffix) {
		return parseItem(token)
	}
	if token == TokenCancel {
		return Action{Kind: KindCancel}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrInvalidDataQuery, token)
}

// parseItem parses a bare token that already matched the item suffix.
// "rate:<n>" is checked first by exact prefix; the others are exact names.
func parseItem(token string) (Action, error) {
	body, ok := strings.CutSuffix(token, ItemSuffix)
	if !ok {
		return Action{}, ErrInvalidDataQuery
	}
	if raw, ok := strings.CutPrefix(body, ratePrefix); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Action{}, fmt.Errorf("%w: rating %q", ErrInvalidDataQuery, raw)
		}
		return Action{Kind: KindRate, Rating: ClampRating(n)}, nil
	}
	if kind, ok := itemKinds[body]; ok {
		return Action{Kind: kind}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrInvalidDataQuery, token)
}

// ClampRating limits n to the rating range.
func ClampRating(n int) int {
	switch {
	case n < MinRating:
		return MinRating
	case n > MaxRating:
		return MaxRating
	}
	return n
}
