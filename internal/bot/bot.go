// Package bot binds the conversation flow to Telegram: it registers the
// commands and callback routes and adapts outbound directives to telebot.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/suggestbot/core/logger"
	tg "github.com/m3rciful/suggestbot/core/telegram"
	"github.com/m3rciful/suggestbot/core/telegram/callbacks"
	"github.com/m3rciful/suggestbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"
	"github.com/m3rciful/suggestbot/internal/action"
	"github.com/m3rciful/suggestbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// Flow is the part of flow.Machine the handlers drive.
type Flow interface {
	Handle(ctx context.Context, in flow.Inbound, a action.Action) error
	Sessions() int
}

// Counter reports the number of stored suggestions.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// FailureCounter reports failed outbound calls. *sender.Dispatcher
// satisfies it.
type FailureCounter interface {
	ErrorCount() uint64
}

// Handlers turns Telegram updates into flow actions.
type Handlers struct {
	flow     Flow
	failures FailureCounter
	stored   Counter
}

// NewHandlers builds the handler set. failures and stored may be nil.
func NewHandlers(f Flow, failures FailureCounter, stored Counter) *Handlers {
	return &Handlers{flow: f, failures: failures, stored: stored}
}

// Register adds the bot's commands, callback routes and text fallback to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand(action.CommandStart, commands.Command{
		Handler:     h.command,
		Description: "Show the menu and start over",
	})
	reg.RegisterCommand(action.CommandHelp, commands.Command{
		Handler:     h.command,
		Description: "List available commands",
	})
	reg.RegisterCommand(action.CommandMovie, commands.Command{
		Handler:     h.command,
		Description: "Search a movie: /movie <title>",
	})
	reg.RegisterCommand(action.CommandStats, commands.Command{
		Handler:     h.stats,
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	// Item tokens first, then the exact cancel token.
	if err := reg.RegisterCallback(tg.Suffix(action.ItemSuffix), h.callback); err != nil {
		return err
	}
	if err := reg.RegisterCallback(tg.Exact(action.TokenCancel), h.callback); err != nil {
		return err
	}
	reg.SetCallbackNotFound(h.unknown)
	reg.SetTextFallback(h.text)
	return nil
}

func (h *Handlers) command(c tele.Context) error {
	a, err := action.ParseCommand(c.Text())
	if err != nil {
		return flow.ParseError("command", err)
	}
	return h.flow.Handle(tghelpers.BuildContext(c), inbound(c), a)
}

func (h *Handlers) callback(c tele.Context) error {
	a, err := action.ParseCallback(callbacks.Key(c))
	if err != nil {
		return flow.ParseError("callback", err)
	}
	return h.flow.Handle(tghelpers.BuildContext(c), inbound(c), a)
}

// unknown answers callbacks no route matched and reports them as invalid
// data.
func (h *Handlers) unknown(c tele.Context) error {
	_ = tghelpers.Respond(c, &tele.CallbackResponse{Text: tg.UnsupportedActionText})
	key := callbacks.Key(c)
	return flow.ParseError("callback", fmt.Errorf("%w: %q", action.ErrInvalidDataQuery, key))
}

// text receives plain messages and slash commands the registry does not know.
func (h *Handlers) text(c tele.Context) error {
	a, err := action.ParseCommand(c.Text())
	if err != nil {
		return flow.ParseError("text", err)
	}
	return h.flow.Handle(tghelpers.BuildContext(c), inbound(c), a)
}

func (h *Handlers) stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	lines := []string{fmt.Sprintf("Active sessions: %d", h.flow.Sessions())}
	if h.failures != nil {
		lines = append(lines, fmt.Sprintf("Outbound failures: %d", h.failures.ErrorCount()))
	}
	if h.stored != nil {
		n, err := h.stored.Count(ctx)
		if err != nil {
			logger.Warn(ctx, "app", "stats.count",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			lines = append(lines, "Suggestions stored: unavailable")
		} else {
			lines = append(lines, fmt.Sprintf("Suggestions stored: %d", n))
		}
	}
	return tghelpers.SendText(c, strings.Join(lines, "\n"))
}

func inbound(c tele.Context) flow.Inbound {
	var in flow.Inbound
	if u := c.Sender(); u != nil {
		in.UserID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		in.ChatID = chat.ID
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		in.MessageID = cb.Message.ID
		if in.ChatID == 0 && cb.Message.Chat != nil {
			in.ChatID = cb.Message.Chat.ID
		}
	}
	return in
}
