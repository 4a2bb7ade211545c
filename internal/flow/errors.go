package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/suggestbot/internal/action"
	"github.com/m3rciful/suggestbot/internal/session"
)

// Kind classifies a flow failure.
type Kind int

const (
	KindNoSession Kind = iota + 1
	KindNoMatch
	KindInvalidDataQuery
	KindOutOfBounds
	KindWrongStep
	KindStale
	KindUpstreamFailure
	KindTransportFailure
	KindPublishFailure
)

// Sentinels usable with errors.Is against any *Error of the matching kind.
var (
	ErrNoSession        = errors.New("no session")
	ErrNoMatch          = errors.New("no match")
	ErrInvalidDataQuery = errors.New("invalid data query")
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrWrongStep        = errors.New("wrong step")
	ErrStale            = errors.New("stale event")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrTransportFailure = errors.New("transport failure")
	ErrPublishFailure   = errors.New("publish failure")

	// ErrPending is wrapped by WrongStep errors raised while a catalog call
	// is still in flight.
	ErrPending = errors.New("operation pending")
)

var kindSentinels = map[Kind]error{
	KindNoSession:        ErrNoSession,
	KindNoMatch:          ErrNoMatch,
	KindInvalidDataQuery: ErrInvalidDataQuery,
	KindOutOfBounds:      ErrOutOfBounds,
	KindWrongStep:        ErrWrongStep,
	KindStale:            ErrStale,
	KindUpstreamFailure:  ErrUpstreamFailure,
	KindTransportFailure: ErrTransportFailure,
	KindPublishFailure:   ErrPublishFailure,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown"
}

// Error is returned by Machine for every rejected or failed event.
type Error struct {
	Kind Kind
	Op   string
	Step session.Step
	Err  error
}

// stepUnknown marks errors raised before a session was consulted.
const stepUnknown session.Step = -1

func newError(kind Kind, op string, step session.Step, err error) *Error {
	return &Error{Kind: kind, Op: op, Step: step, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("flow: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Step != stepUnknown {
			fmt.Fprintf(&b, " at %s", e.Step)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Code is the upper-case kind used as err_code in handler logs.
func (e *Error) Code() string {
	return strings.ToUpper(strings.ReplaceAll(e.Kind.String(), " ", "_"))
}

// Quiet reports whether the error describes an ignored event rather than a
// failure worth surfacing.
func (e *Error) Quiet() bool {
	switch e.Kind {
	case KindNoSession, KindOutOfBounds, KindWrongStep, KindStale:
		return true
	}
	return false
}

// ParseError maps action parse errors onto flow errors.
func ParseError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, action.ErrNoMatch):
		return newError(KindNoMatch, op, stepUnknown, err)
	case errors.Is(err, action.ErrInvalidDataQuery):
		return newError(KindInvalidDataQuery, op, stepUnknown, err)
	}
	return err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
