package bot

import (
	"context"
	"errors"
	"strconv"

	"github.com/m3rciful/suggestbot/core/telegram/keyboard"
	"github.com/m3rciful/suggestbot/core/telegram/middleware"
	"github.com/m3rciful/suggestbot/internal/flow"
	"github.com/m3rciful/suggestbot/internal/render"

	tele "gopkg.in/telebot.v4"
)

// API is the part of *tele.Bot the transport calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Runner executes one outbound call with retries. *sender.Dispatcher
// satisfies it.
type Runner interface {
	Do(ctx context.Context, action, endpoint string, run func() error) error
}

type directRunner struct{}

func (directRunner) Do(_ context.Context, _, _ string, run func() error) error { return run() }

// Transport implements flow.Transport on top of the Telegram Bot API.
type Transport struct {
	api    API
	runner Runner
}

var _ flow.Transport = (*Transport)(nil)

// NewTransport builds a Transport. A nil runner calls the API directly.
func NewTransport(api API, runner Runner) *Transport {
	if runner == nil {
		runner = directRunner{}
	}
	return &Transport{api: api, runner: runner}
}

// Markup converts rendered buttons into an inline keyboard, one button per
// row, carrying the raw token as callback data.
func Markup(buttons []render.Button) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, keyboard.InlineBtn{Text: b.Label, Data: b.Token})
	}
	return keyboard.InlineButtons(btns)
}

func stored(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
}

func (t *Transport) SendText(ctx context.Context, chatID int64, text string, buttons []render.Button) (int, error) {
	var msg *tele.Message
	err := t.runner.Do(ctx, "send.text", "sendMessage", func() (err error) {
		msg, err = t.api.Send(tele.ChatID(chatID), text, Markup(buttons))
		return err
	})
	if err != nil {
		return 0, err
	}
	middleware.Track(ctx, len(buttons) > 0)
	return messageID(msg), nil
}

func (t *Transport) SendPhoto(ctx context.Context, chatID int64, imageRef, caption string, buttons []render.Button) (int, error) {
	var msg *tele.Message
	err := t.runner.Do(ctx, "send.photo", "sendPhoto", func() (err error) {
		photo := &tele.Photo{File: tele.FromURL(imageRef), Caption: caption}
		msg, err = t.api.Send(tele.ChatID(chatID), photo, Markup(buttons))
		return err
	})
	if err != nil {
		return 0, err
	}
	middleware.Track(ctx, len(buttons) > 0)
	return messageID(msg), nil
}

// EditMedia replaces the photo and caption of a message. An unchanged
// message is not an error.
func (t *Transport) EditMedia(ctx context.Context, chatID int64, id int, imageRef, caption string, buttons []render.Button) error {
	err := t.runner.Do(ctx, "edit.media", "editMessageMedia", func() error {
		var what interface{} = &tele.Photo{File: tele.FromURL(imageRef), Caption: caption}
		if imageRef == "" {
			what = caption
		}
		_, err := t.api.Edit(stored(chatID, id), what, Markup(buttons))
		return ignoreUnchanged(err)
	})
	if err == nil {
		middleware.Track(ctx, len(buttons) > 0)
	}
	return err
}

func (t *Transport) EditButtons(ctx context.Context, chatID int64, id int, buttons []render.Button) error {
	return t.runner.Do(ctx, "edit.markup", "editMessageReplyMarkup", func() error {
		_, err := t.api.EditReplyMarkup(stored(chatID, id), Markup(buttons))
		return ignoreUnchanged(err)
	})
}

func (t *Transport) Delete(ctx context.Context, chatID int64, id int) error {
	return t.runner.Do(ctx, "delete", "deleteMessage", func() error {
		return t.api.Delete(stored(chatID, id))
	})
}

func ignoreUnchanged(err error) error {
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

func messageID(m *tele.Message) int {
	if m == nil {
		return 0
	}
	return m.ID
}
