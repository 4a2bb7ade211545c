package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Action
	}{
		{"/start", Action{Kind: KindStart}},
		{"  /start  ", Action{Kind: KindStart}},
		{"/start@SuggestionBot", Action{Kind: KindStart}},
		{"/help", Action{Kind: KindHelp}},
		{"/stats", Action{Kind: KindStats}},
		{"/movie inception", Action{Kind: KindSearch, Query: "inception"}},
		{"/movie@SuggestionBot   the dark knight ", Action{Kind: KindSearch, Query: "the dark knight"}},
		{"/MOVIE Heat", Action{Kind: KindSearch, Query: "Heat"}},
		{"/movie", Action{Kind: KindSearch}},
		{"/movie\tAlien", Action{Kind: KindSearch, Query: "Alien"}},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseCommandNoMatch(t *testing.T) {
	for _, in := range []string{"", "hello", "movie inception", "/series lost", "/moviex", "/"} {
		_, err := ParseCommand(in)
		assert.ErrorIs(t, err, ErrNoMatch, in)
	}
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		in   string
		want Action
	}{
		{TokenThisIsIt, Action{Kind: KindThisIsIt}},
		{TokenNext, Action{Kind: KindNext}},
		{TokenPrevious, Action{Kind: KindPrevious}},
		{TokenSuggest, Action{Kind: KindSuggest}},
		{TokenCancel, Action{Kind: KindCancel}},
		{"rate:3_item", Action{Kind: KindRate, Rating: 3}},
		{"rate:0_item", Action{Kind: KindRate, Rating: 0}},
		{"rate:9_item", Action{Kind: KindRate, Rating: 5}},
		{"rate:-2_item", Action{Kind: KindRate, Rating: 0}},
		{"\frate:4_item|payload", Action{Kind: KindRate, Rating: 4}},
		{"\fcancel", Action{Kind: KindCancel}},
		{"\fnext_item|", Action{Kind: KindNext}},
	}
	for _, tc := range cases {
		got, err := ParseCallback(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseCallbackInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"decorate_item",
		"_item",
		"cancel_item",
		"rate:abc_item",
		"rate:_item",
		"xrate:3_item",
		"next",
		"this_is_it_movie",
		"cancel please",
	} {
		_, err := ParseCallback(in)
		assert.ErrorIs(t, err, ErrInvalidDataQuery, in)
	}
}

func TestRateTokenRoundTrip(t *testing.T) {
	for n := MinRating; n <= MaxRating; n++ {
		got, err := ParseCallback(RateToken(n))
		require.NoError(t, err)
		assert.Equal(t, Action{Kind: KindRate, Rating: n}, got)
	}
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/movie", CommandName("/Movie@SomeBot"))
	assert.Equal(t, "/start", CommandName(" /start "))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, `search("heat")`, Action{Kind: KindSearch, Query: "heat"}.String())
	assert.Equal(t, "rate(3)", Action{Kind: KindRate, Rating: 3}.String())
	assert.Equal(t, "cancel", Action{Kind: KindCancel}.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
