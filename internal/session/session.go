package session

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/m3rciful/suggestbot/internal/catalog"
)

// ErrOutOfBounds is returned when the cursor cannot move in the requested direction.
var ErrOutOfBounds = errors.New("session: cursor out of bounds")

// PendingKind names the asynchronous operation a session is waiting on.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingSearch
	PendingLookup
)

func (k PendingKind) String() string {
	switch k {
	case PendingSearch:
		return "search"
	case PendingLookup:
		return "lookup"
	}
	return "none"
}

// Ticket identifies one in-flight catalog call.
type Ticket struct {
	Kind PendingKind
	Seq  uint64
}

// Active reports whether the ticket refers to an outstanding call.
func (t Ticket) Active() bool {
	return t.Kind != PendingNone
}

var epochs atomic.Uint64

// NextEpoch returns a process-unique session identity.
func NextEpoch() uint64 {
	return epochs.Add(1)
}

// UserSession is the per-user conversation state.
type UserSession struct {
	UserID int64
	ChatID int64
	Epoch  uint64

	Results  []catalog.SearchResult
	Index    int
	HasIndex bool

	Locations LocationStack

	Detail    *catalog.DetailRecord
	Rating    int
	HasRating bool

	// MessageID is the rendered item message, 0 when none.
	MessageID int

	Pending Ticket
	seq     uint64

	UpdatedAt time.Time
}

// New returns a fresh session at StepInitial with a new epoch.
func New(userID, chatID int64, now time.Time) *UserSession {
	return &UserSession{
		UserID:    userID,
		ChatID:    chatID,
		Epoch:     NextEpoch(),
		Locations: NewLocationStack(),
		UpdatedAt: now,
	}
}

// Step returns the current step.
func (s *UserSession) Step() Step {
	return s.Locations.Current()
}

// SetResults stores a search result list and presents its first element.
func (s *UserSession) SetResults(results []catalog.SearchResult) {
	s.Results = append([]catalog.SearchResult(nil), results...)
	s.Index = 0
	s.HasIndex = len(s.Results) > 0
}

// Presented returns the result currently shown to the user.
func (s *UserSession) Presented() (catalog.SearchResult, bool) {
	if !s.HasIndex || s.Index < 0 || s.Index >= len(s.Results) {
		return catalog.SearchResult{}, false
	}
	return s.Results[s.Index], true
}

// Advance moves the cursor forward by one. On failure nothing changes.
func (s *UserSession) Advance() error {
	if !s.HasIndex || s.Index+1 >= len(s.Results) {
		return ErrOutOfBounds
	}
	s.Index++
	return nil
}

// Retreat moves the cursor back by one. On failure nothing changes.
func (s *UserSession) Retreat() error {
	if !s.HasIndex || s.Index <= 0 {
		return ErrOutOfBounds
	}
	s.Index--
	return nil
}

// IsFirst reports whether the presented result is the first one.
func (s *UserSession) IsFirst() bool {
	cur, ok := s.Presented()
	return ok && cur.SameAs(s.Results[0])
}

// IsLast reports whether the presented result is the last one.
func (s *UserSession) IsLast() bool {
	cur, ok := s.Presented()
	return ok && cur.SameAs(s.Results[len(s.Results)-1])
}

// Begin records a new pending call of kind and returns its ticket.
func (s *UserSession) Begin(kind PendingKind) Ticket {
	s.seq++
	s.Pending = Ticket{Kind: kind, Seq: s.seq}
	return s.Pending
}

// Finish clears the pending ticket.
func (s *UserSession) Finish() {
	s.Pending = Ticket{}
}
