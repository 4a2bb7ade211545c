package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/suggestbot/core/logger"
	"github.com/m3rciful/suggestbot/core/telegram/callbacks"
	"github.com/m3rciful/suggestbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/suggestbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// UnsupportedActionText answers callbacks no route matched.
const UnsupportedActionText = "Unsupported action"

// ErrUnknownCallback is returned by the default not-found handler.
var ErrUnknownCallback = errors.New("telegram: unknown callback")

const wireComponent = "tg.wire"

// MatchKind selects how a callback route compares against a callback key.
type MatchKind int

const (
	// MatchExact requires the key to equal the pattern.
	MatchExact MatchKind = iota
	// MatchSuffix requires the key to end with the pattern.
	MatchSuffix
	// MatchPrefix requires the key to start with the pattern.
	MatchPrefix
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSuffix:
		return "suffix"
	case MatchPrefix:
		return "prefix"
	}
	return "unknown"
}

// CallbackMatcher is a single pattern of the ordered callback table.
type CallbackMatcher struct {
	Kind    MatchKind
	Pattern string
}

// Exact matches a key equal to p.
func Exact(p string) CallbackMatcher { return CallbackMatcher{Kind: MatchExact, Pattern: p} }

// Suffix matches a key ending with p.
func Suffix(p string) CallbackMatcher { return CallbackMatcher{Kind: MatchSuffix, Pattern: p} }

// Prefix matches a key starting with p.
func Prefix(p string) CallbackMatcher { return CallbackMatcher{Kind: MatchPrefix, Pattern: p} }

// Match reports whether key satisfies the matcher.
func (m CallbackMatcher) Match(key string) bool {
	switch m.Kind {
	case MatchExact:
		return key == m.Pattern
	case MatchSuffix:
		return strings.HasSuffix(key, m.Pattern)
	case MatchPrefix:
		return strings.HasPrefix(key, m.Pattern)
	}
	return false
}

func (m CallbackMatcher) String() string {
	return m.Kind.String() + ":" + m.Pattern
}

type callbackRoute struct {
	matcher CallbackMatcher
	handler tele.HandlerFunc
}

// Registry holds bot commands and the ordered callback table.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        []callbackRoute
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]commands.Command),
		callbackNotFound: func(c tele.Context) error {
			_ = tghelpers.Respond(c, &tele.CallbackResponse{Text: UnsupportedActionText})
			return fmt.Errorf("%w: %q", ErrUnknownCallback, callbacks.Key(c))
		},
	}
}

// RegisterCommand adds a new command. name must start with '/'.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(context.Background(), wireComponent, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.Warn(context.Background(), wireComponent, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	name = commands.Normalize(name)
	if _, exists := r.commands[name]; exists {
		logger.Warn(context.Background(), wireComponent, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the command menu, optionally filtering out hidden and
// admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(cmd, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves the first word of text to a registered command or
// alias. "/Movie@SuggestBot dune" resolves to "/movie".
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name := commands.Normalize(text)
	if name == "" {
		return "", commands.Command{}, false
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if commands.Normalize(alias) == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback appends a route to the callback table. Routes are tried
// in registration order and the first match wins.
func (r *Registry) RegisterCallback(m CallbackMatcher, handler tele.HandlerFunc) error {
	if r == nil || m.Pattern == "" || handler == nil {
		logger.Warn(context.Background(), wireComponent, "register.callback.skip",
			slog.String("cb_key", m.String()),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	for _, route := range r.callbacks {
		if route.matcher == m {
			logger.Warn(context.Background(), wireComponent, "register.callback.duplicate",
				slog.String("cb_key", m.String()),
			)
			return fmt.Errorf("callback already registered: %s", m)
		}
	}
	r.callbacks = append(r.callbacks, callbackRoute{matcher: m, handler: handler})
	return nil
}

// MatchCallback returns the handler of the first route matching key.
func (r *Registry) MatchCallback(key string) (CallbackMatcher, tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	for _, route := range r.callbacks {
		if route.matcher.Match(key) {
			return route.matcher, route.handler, true
		}
	}
	return CallbackMatcher{}, nil, false
}

// ListCallbacks returns the callback patterns in match order.
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for _, route := range r.callbacks {
		names = append(names, route.matcher.String())
	}
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), wireComponent, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(context.Background(), wireComponent, "register.commands.set",
		slog.Int("count", len(list)),
	)
}
