// Package action turns inbound commands and callback tokens into typed
// actions for the conversation flow.
package action

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch marks text that is not a known command.
	ErrNoMatch = errors.New("action: no matching command")
	// ErrInvalidDataQuery marks a callback token no pattern accepts.
	ErrInvalidDataQuery = errors.New("action: invalid callback data")
)

// Kind tags an Action variant.
type Kind int

const (
	KindStart Kind = iota + 1
	KindHelp
	KindStats
	KindSearch
	KindNext
	KindPrevious
	KindThisIsIt
	KindRate
	KindSuggest
	KindCancel
)

var kindNames = map[Kind]string{
	KindStart:    "start",
	KindHelp:     "help",
	KindStats:    "stats",
	KindSearch:   "search",
	KindNext:     "next",
	KindPrevious: "previous",
	KindThisIsIt: "this_is_it",
	KindRate:     "rate",
	KindSuggest:  "suggest",
	KindCancel:   "cancel",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Action is one parsed inbound event. Query is set for KindSearch and
// Rating for KindRate.
type Action struct {
	Kind   Kind
	Query  string
	Rating int
}

func (a Action) String() string {
	switch a.Kind {
	case KindSearch:
		return fmt.Sprintf("search(%q)", a.Query)
	case KindRate:
		return fmt.Sprintf("rate(%d)", a.Rating)
	}
	return a.Kind.String()
}

// Commands.
const (
	CommandStart = "/start"
	CommandHelp  = "/help"
	CommandStats = "/stats"
	CommandMovie = "/movie"
)

var commandKinds = map[string]Kind{
	CommandStart: KindStart,
	CommandHelp:  KindHelp,
	CommandStats: KindStats,
	CommandMovie: KindSearch,
}

// ParseCommand classifies a text message. The command is the text up to the
// first whitespace with any @botname suffix removed; the rest is the query.
func ParseCommand(text string) (Action, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Action{}, ErrNoMatch
	}
	name, rest := text, ""
	if i := strings.IndexFunc(text, isSpace); i >= 0 {
		name, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	name = CommandName(name)
	kind, ok := commandKinds[name]
	if !ok {
		return Action{}, ErrNoMatch
	}
	a := Action{Kind: kind}
	if kind == KindSearch {
		a.Query = rest
	}
	return a, nil
}

// CommandName normalizes "/Movie@SomeBot" to "/movie".
func CommandName(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '@'); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
