package router

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/suggestbot/core/telegram"
	"github.com/m3rciful/suggestbot/core/telegram/commands"
)

// spyContext records callback answers instead of calling the Bot API.
type spyContext struct {
	tele.Context
	mu        sync.Mutex
	responses []*tele.CallbackResponse
}

func (s *spyContext) Respond(resp ...*tele.CallbackResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(resp) == 0 {
		s.responses = append(s.responses, &tele.CallbackResponse{})
		return nil
	}
	s.responses = append(s.responses, resp...)
	return nil
}

func newSpy(t *testing.T, upd tele.Update) *spyContext {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return &spyContext{Context: b.NewContext(upd)}
}

func callback(data string) tele.Update {
	return tele.Update{ID: 1, Callback: &tele.Callback{
		Sender:  &tele.User{ID: 9},
		Data:    data,
		Message: &tele.Message{ID: 3, Chat: &tele.Chat{ID: 90}},
	}}
}

func text(s string, userID int64) tele.Update {
	return tele.Update{ID: 2, Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
		Text:   s,
	}}
}

type quietErr struct{}

func (quietErr) Error() string { return "stale" }
func (quietErr) Quiet() bool   { return true }
func (quietErr) Code() string  { return "stale" }

func TestCallbackRouteOrder(t *testing.T) {
	reg := tg.NewRegistry()
	var hits []string
	require.NoError(t, reg.RegisterCallback(tg.Suffix("_item"), func(c tele.Context) error {
		hits = append(hits, "item:"+c.Callback().Data)
		return nil
	}))
	require.NoError(t, reg.RegisterCallback(tg.Exact("cancel"), func(tele.Context) error {
		hits = append(hits, "cancel")
		return nil
	}))
	assert.Error(t, reg.RegisterCallback(tg.Exact("cancel"), func(tele.Context) error { return nil }))

	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	for _, data := range []string{"next_item", "cancel", "\fcancel|x", "rate:3_item"} {
		c := newSpy(t, callback(data))
		require.NoError(t, route.Handler(c))
		assert.Len(t, c.responses, 1, data)
		assert.Empty(t, c.responses[0].Text)
	}
	assert.Equal(t, []string{"item:next_item", "cancel", "cancel", "item:rate:3_item"}, hits)
}

func TestCallbackRouteUnknown(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback(tg.Exact("cancel"), func(tele.Context) error { return nil }))
	c := newSpy(t, callback("cancel_later"))
	err := CallbackRoute(reg, CallbackOptions{}).Handler(c)
	assert.ErrorIs(t, err, tg.ErrUnknownCallback)
	assert.ErrorContains(t, err, "cancel_later")
	require.Len(t, c.responses, 1)
	assert.Equal(t, tg.UnsupportedActionText, c.responses[0].Text)
}

func TestCallbackRouteErrors(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterCallback(tg.Exact("quiet"), func(tele.Context) error { return fmt.Errorf("wrapped: %w", quietErr{}) }))
	require.NoError(t, reg.RegisterCallback(tg.Exact("loud"), func(tele.Context) error { return boom }))
	route := CallbackRoute(reg, CallbackOptions{})

	assert.NoError(t, route.Handler(newSpy(t, callback("quiet"))))
	assert.ErrorIs(t, route.Handler(newSpy(t, callback("loud"))), boom)
}

func TestTextRouteResolvesLooseCommands(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	reg.RegisterCommand("/movie", commands.Command{
		Description: "search",
		Handler: func(c tele.Context) error {
			got = append(got, c.Text())
			return nil
		},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "stats",
		AdminOnly:   true,
		Handler: func(tele.Context) error {
			got = append(got, "stats")
			return nil
		},
	})
	fallbacks := 0
	reg.SetTextFallback(func(tele.Context) error { fallbacks++; return nil })

	route := TextRoute(reg, TextOptions{AdminID: 1})
	require.NoError(t, route.Handler(newSpy(t, text("/Movie@SuggestBot dune", 5))))
	require.NoError(t, route.Handler(newSpy(t, text("movie dune", 5))))
	require.NoError(t, route.Handler(newSpy(t, text("/stats", 5))))
	require.NoError(t, route.Handler(newSpy(t, text("/STATS", 1))))

	assert.Equal(t, []string{"/Movie@SuggestBot dune", "stats"}, got)
	assert.Equal(t, 1, fallbacks)
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "STALE", deriveErrorCode(fmt.Errorf("x: %w", quietErr{})))
	assert.Equal(t, "INTERNAL", deriveErrorCode(errors.New("plain")))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "movie", normalizeHandlerName("/Movie"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
	assert.Equal(t, "a_b", normalizeHandlerName("a b"))
}
