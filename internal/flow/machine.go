// Package flow is the per-user conversation state machine. Each inbound
// action is applied to the user's session under that user's lock; catalog
// calls run outside the lock and their results are re-validated before use.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/suggestbot/core/logger"
	"github.com/m3rciful/suggestbot/core/telegram/state"
	"github.com/m3rciful/suggestbot/internal/action"
	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/render"
	"github.com/m3rciful/suggestbot/internal/session"
	"github.com/m3rciful/suggestbot/internal/suggestion"
)

const component = "flow"

// Store is the session store the machine runs on.
type Store = state.Store[*session.UserSession]

type sessionTx = state.Tx[*session.UserSession]

// Inbound identifies the sender of an event. MessageID is the message a
// callback button belongs to and is 0 for commands.
type Inbound struct {
	UserID    int64
	ChatID    int64
	MessageID int
}

// Options wires a Machine. Store and Now are optional.
type Options struct {
	Store     Store
	Catalog   catalog.Client
	Transport Transport
	Publisher suggestion.Publisher
	Renderer  *render.Renderer
	Now       func() time.Time
}

// Machine applies actions to user sessions.
type Machine struct {
	store     Store
	catalog   catalog.Client
	transport Transport
	publisher suggestion.Publisher
	renderer  *render.Renderer
	now       func() time.Time
}

// NewMachine validates opts and returns a ready Machine.
func NewMachine(opts Options) (*Machine, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.New("flow: nil catalog")
	case opts.Transport == nil:
		return nil, errors.New("flow: nil transport")
	case opts.Publisher == nil:
		return nil, errors.New("flow: nil publisher")
	case opts.Renderer == nil:
		return nil, errors.New("flow: nil renderer")
	}
	m := &Machine{
		store:     opts.Store,
		catalog:   opts.Catalog,
		transport: opts.Transport,
		publisher: opts.Publisher,
		renderer:  opts.Renderer,
		now:       opts.Now,
	}
	if m.store == nil {
		m.store = state.NewMemoryStore[*session.UserSession]()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Sessions reports the number of live sessions.
func (m *Machine) Sessions() int {
	return m.store.Len()
}

// Handle applies a to the sender's session.
func (m *Machine) Handle(ctx context.Context, in Inbound, a action.Action) error {
	switch a.Kind {
	case action.KindStart:
		return m.start(ctx, in)
	case action.KindHelp:
		return m.help(ctx, in)
	case action.KindSearch:
		return m.search(ctx, in, a.Query)
	case action.KindNext:
		return m.navigate(ctx, in, "next", (*session.UserSession).Advance)
	case action.KindPrevious:
		return m.navigate(ctx, in, "previous", (*session.UserSession).Retreat)
	case action.KindThisIsIt:
		return m.choose(ctx, in)
	case action.KindRate:
		return m.rate(ctx, in, a.Rating)
	case action.KindSuggest:
		return m.suggest(ctx, in)
	case action.KindCancel:
		return m.cancel(ctx, in)
	}
	return newError(KindNoMatch, a.Kind.String(), stepUnknown, fmt.Errorf("unsupported action %s", a))
}

func (m *Machine) start(ctx context.Context, in Inbound) error {
	return m.store.Do(in.UserID, func(tx sessionTx) error {
		from := session.StepInitial
		if old, ok := tx.Get(); ok {
			from = old.Step()
		}
		s := session.New(in.UserID, in.ChatID, m.now())
		tx.Set(s)
		m.logTransition(ctx, "start", from, s)
		_, err := m.apply(ctx, in.ChatID, s.Step(), m.renderer.Menu())
		return err
	})
}

func (m *Machine) help(ctx context.Context, in Inbound) error {
	return m.store.Do(in.UserID, func(tx sessionTx) error {
		step := session.StepInitial
		if s, ok := tx.Get(); ok {
			step = s.Step()
		}
		_, err := m.apply(ctx, in.ChatID, step, m.renderer.Menu())
		return err
	})
}

// search starts a new flow from any step. The session is replaced before the
// catalog call so a concurrent cancel or second search invalidates it.
func (m *Machine) search(ctx context.Context, in Inbound, query string) error {
	const op = "search"
	query = strings.TrimSpace(query)
	if query == "" {
		return m.store.Do(in.UserID, func(sessionTx) error {
			_, err := m.apply(ctx, in.ChatID, stepUnknown, m.renderer.EmptyQuery())
			return err
		})
	}

	var (
		epoch  uint64
		ticket session.Ticket
	)
	_ = m.store.Do(in.UserID, func(tx sessionTx) error {
		if old, ok := tx.Get(); ok && old.Step() != session.StepInitial {
			logger.Info(ctx, component, "flow.reset",
				slog.String("action", op),
				slog.String("from_step", old.Step().String()),
				slog.Uint64("epoch", old.Epoch),
			)
		}
		s := session.New(in.UserID, in.ChatID, m.now())
		ticket = s.Begin(session.PendingSearch)
		epoch = s.Epoch
		tx.Set(s)
		return nil
	})

	results, searchErr := m.catalog.Search(ctx, query)

	return m.store.Do(in.UserID, func(tx sessionTx) error {
		s, ok := tx.Get()
		if !current(s, ok, epoch, ticket, session.StepInitial) {
			return m.discard(ctx, op, epoch)
		}
		s.Finish()
		m.touch(s)
		if searchErr != nil {
			m.logUpstream(ctx, op, s, searchErr, slog.String("query", query))
			_, sendErr := m.apply(ctx, s.ChatID, s.Step(), m.renderer.NotFound())
			return errors.Join(newError(KindUpstreamFailure, op, s.Step(), searchErr), sendErr)
		}
		if len(results) == 0 {
			logger.Info(ctx, component, "flow.search.empty",
				slog.String("status", "ok"),
				slog.String("query", query),
				slog.Int("count", 0),
			)
			_, err := m.apply(ctx, s.ChatID, s.Step(), m.renderer.NotFound())
			return err
		}
		s.SetResults(results)
		s.Locations.Push(session.StepName)
		m.logTransition(ctx, op, session.StepInitial, s)
		return m.show(ctx, s)
	})
}

func (m *Machine) navigate(ctx context.Context, in Inbound, op string, move func(*session.UserSession) error) error {
	return m.withSession(ctx, in, op, func(_ sessionTx, s *session.UserSession) error {
		if err := expectStep(op, s, session.StepName); err != nil {
			return err
		}
		if s.Pending.Active() {
			return newError(KindWrongStep, op, s.Step(), ErrPending)
		}
		if err := move(s); err != nil {
			return newError(KindOutOfBounds, op, s.Step(), err)
		}
		m.touch(s)
		logger.Debug(ctx, component, "flow.navigate",
			slog.String("action", op),
			slog.Int("index", s.Index),
			slog.Int("count", len(s.Results)),
		)
		return m.show(ctx, s)
	})
}

// choose looks up the presented item. A second tap while the lookup is in
// flight is rejected with ErrPending.
func (m *Machine) choose(ctx context.Context, in Inbound) error {
	const op = "this_is_it"
	var (
		epoch  uint64
		ticket session.Ticket
		item   catalog.SearchResult
	)
	err := m.withSession(ctx, in, op, func(_ sessionTx, s *session.UserSession) error {
		if err := expectStep(op, s, session.StepName); err != nil {
			return err
		}
		if s.Pending.Active() {
			return newError(KindWrongStep, op, s.Step(), ErrPending)
		}
		cur, ok := s.Presented()
		if !ok {
			return newError(KindWrongStep, op, s.Step(), errors.New("nothing presented"))
		}
		item = cur
		ticket = s.Begin(session.PendingLookup)
		epoch = s.Epoch
		m.touch(s)
		return nil
	})
	if err != nil {
		return err
	}

	detail, lookupErr := m.catalog.Lookup(ctx, item.ID)

	return m.store.Do(in.UserID, func(tx sessionTx) error {
		s, ok := tx.Get()
		if !current(s, ok, epoch, ticket, session.StepName) {
			return m.discard(ctx, op, epoch)
		}
		s.Finish()
		m.touch(s)
		if lookupErr != nil {
			m.logUpstream(ctx, op, s, lookupErr, slog.String("item_id", item.ID))
			return newError(KindUpstreamFailure, op, s.Step(), lookupErr)
		}
		s.Detail = &detail
		s.Locations.Push(session.StepRate)
		m.logTransition(ctx, op, session.StepName, s)
		return m.show(ctx, s)
	})
}

func (m *Machine) rate(ctx context.Context, in Inbound, rating int) error {
	const op = "rate"
	return m.withSession(ctx, in, op, func(_ sessionTx, s *session.UserSession) error {
		if err := expectStep(op, s, session.StepRate); err != nil {
			return err
		}
		if s.Detail == nil {
			return newError(KindWrongStep, op, s.Step(), errors.New("no detail"))
		}
		s.Rating = action.ClampRating(rating)
		s.HasRating = true
		s.Locations.Push(session.StepDescription)
		m.touch(s)
		m.logTransition(ctx, op, session.StepRate, s, slog.Int("rating", s.Rating))
		return m.show(ctx, s)
	})
}

// suggest publishes the finished record. A publish failure keeps the session
// at description so the user can press the button again.
func (m *Machine) suggest(ctx context.Context, in Inbound) error {
	const op = "suggest"
	return m.withSession(ctx, in, op, func(tx sessionTx, s *session.UserSession) error {
		if err := expectStep(op, s, session.StepDescription); err != nil {
			return err
		}
		if s.Detail == nil || !s.HasRating {
			return newError(KindWrongStep, op, s.Step(), errors.New("no detail or rating"))
		}
		rec := suggestion.New(s.UserID, s.ChatID, *s.Detail, s.Rating, m.now())
		if err := m.publisher.Publish(ctx, rec); err != nil {
			logger.Error(ctx, component, "flow.publish",
				slog.String("status", "fail"),
				slog.String("step", s.Step().String()),
				slog.String("item_id", rec.ItemID),
				slog.String("err", err.Error()),
			)
			return newError(KindPublishFailure, op, s.Step(), err)
		}

		var errs []error
		if _, err := m.apply(ctx, s.ChatID, s.Step(), m.renderer.Confirmation(s)); err != nil {
			errs = append(errs, err)
		}
		fresh := session.New(in.UserID, in.ChatID, m.now())
		tx.Set(fresh)
		m.logTransition(ctx, op, session.StepDescription, fresh, slog.String("item_id", rec.ItemID))
		if _, err := m.apply(ctx, in.ChatID, fresh.Step(), m.renderer.Menu()); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// cancel removes the session from any step. Without a session it does
// nothing.
func (m *Machine) cancel(ctx context.Context, in Inbound) error {
	const op = "cancel"
	return m.store.Do(in.UserID, func(tx sessionTx) error {
		s, ok := tx.Get()
		if !ok {
			logger.Debug(ctx, component, "flow.cancel",
				slog.String("status", "skip"),
				slog.String("outcome", "noop"),
			)
			return nil
		}
		if in.MessageID != 0 && in.MessageID != s.MessageID {
			return m.stale(ctx, in, op, s)
		}
		var errs []error
		if _, err := m.apply(ctx, s.ChatID, s.Step(), render.DeleteMessage{MessageID: s.MessageID}); err != nil {
			errs = append(errs, err)
		}
		tx.Remove()
		logger.Info(ctx, component, "flow.cancel",
			slog.String("status", "ok"),
			slog.String("from_step", s.Step().String()),
			slog.Uint64("epoch", s.Epoch),
		)
		if _, err := m.apply(ctx, in.ChatID, session.StepInitial, m.renderer.Menu()); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// withSession runs fn for callbacks that need an existing session rendered
// on the message the callback came from.
func (m *Machine) withSession(ctx context.Context, in Inbound, op string, fn func(sessionTx, *session.UserSession) error) error {
	return m.store.Do(in.UserID, func(tx sessionTx) error {
		s, ok := tx.Get()
		if !ok {
			return newError(KindNoSession, op, stepUnknown, nil)
		}
		if in.MessageID != 0 && in.MessageID != s.MessageID {
			return m.stale(ctx, in, op, s)
		}
		return fn(tx, s)
	})
}

// stale strips the keyboard of a message the session no longer renders.
func (m *Machine) stale(ctx context.Context, in Inbound, op string, s *session.UserSession) error {
	logger.Debug(ctx, component, "flow.stale",
		slog.String("status", "stale"),
		slog.String("action", op),
		slog.String("step", s.Step().String()),
	)
	_, _ = m.apply(ctx, in.ChatID, s.Step(), render.EditButtonsOnly{MessageID: in.MessageID})
	return newError(KindStale, op, s.Step(), fmt.Errorf("message %d is not the rendered message %d", in.MessageID, s.MessageID))
}

func (m *Machine) discard(ctx context.Context, op string, epoch uint64) error {
	logger.Debug(ctx, component, "flow.discard",
		slog.String("status", "stale"),
		slog.String("action", op),
		slog.Uint64("epoch", epoch),
	)
	return newError(KindStale, op, stepUnknown, errors.New("result discarded"))
}

// show renders the session's current step and records the message id of a
// newly sent item message.
func (m *Machine) show(ctx context.Context, s *session.UserSession) error {
	d, err := m.renderer.Render(s.Step(), s)
	if err != nil {
		return fmt.Errorf("flow: %w", err)
	}
	id, err := m.apply(ctx, s.ChatID, s.Step(), d)
	if _, isNew := d.(render.SendNewMessage); isNew && err == nil {
		s.MessageID = id
	}
	return err
}

func (m *Machine) touch(s *session.UserSession) {
	s.UpdatedAt = m.now()
}

func current(s *session.UserSession, ok bool, epoch uint64, t session.Ticket, step session.Step) bool {
	return ok && s.Epoch == epoch && s.Pending == t && s.Step() == step
}

func expectStep(op string, s *session.UserSession, want session.Step) error {
	if s.Step() != want {
		return newError(KindWrongStep, op, s.Step(), fmt.Errorf("want %s", want))
	}
	return nil
}

func (m *Machine) logTransition(ctx context.Context, op string, from session.Step, s *session.UserSession, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("action", op),
		slog.String("from_step", from.String()),
		slog.String("to_step", s.Step().String()),
		slog.Uint64("epoch", s.Epoch),
	}
	logger.Info(ctx, component, "flow.transition", append(attrs, extra...)...)
}

func (m *Machine) logUpstream(ctx context.Context, op string, s *session.UserSession, err error, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("action", op),
		slog.String("step", s.Step().String()),
		slog.String("err", err.Error()),
		slog.String("err_code", "UPSTREAM_FAILURE"),
	}
	logger.Warn(ctx, component, "flow.upstream", append(attrs, extra...)...)
}
