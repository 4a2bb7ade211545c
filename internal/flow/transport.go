package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/suggestbot/core/logger"
	"github.com/m3rciful/suggestbot/internal/render"
	"github.com/m3rciful/suggestbot/internal/session"
)

// Transport performs the outbound calls directives map onto.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, buttons []render.Button) (int, error)
	SendPhoto(ctx context.Context, chatID int64, imageRef, caption string, buttons []render.Button) (int, error)
	EditMedia(ctx context.Context, chatID int64, messageID int, imageRef, caption string, buttons []render.Button) error
	EditButtons(ctx context.Context, chatID int64, messageID int, buttons []render.Button) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// apply executes d. It returns the id of a newly sent message. Edits and
// deletes aimed at message 0 are skipped. Failures are logged and returned
// as TransportFailure; session state is never rolled back.
func (m *Machine) apply(ctx context.Context, chatID int64, step session.Step, d render.Directive) (int, error) {
	var (
		id   int
		err  error
		kind string
	)
	switch d := d.(type) {
	case render.SendNewMessage:
		if d.ImageRef == "" {
			kind = "send_text"
			id, err = m.transport.SendText(ctx, chatID, d.Caption, d.Buttons)
		} else {
			kind = "send_photo"
			id, err = m.transport.SendPhoto(ctx, chatID, d.ImageRef, d.Caption, d.Buttons)
		}
	case render.EditMessage:
		kind, id = "edit_media", d.MessageID
		if d.MessageID == 0 {
			return 0, nil
		}
		err = m.transport.EditMedia(ctx, chatID, d.MessageID, d.ImageRef, d.Caption, d.Buttons)
	case render.EditButtonsOnly:
		kind, id = "edit_buttons", d.MessageID
		if d.MessageID == 0 {
			return 0, nil
		}
		err = m.transport.EditButtons(ctx, chatID, d.MessageID, d.Buttons)
	case render.DeleteMessage:
		kind, id = "delete", d.MessageID
		if d.MessageID == 0 {
			return 0, nil
		}
		err = m.transport.Delete(ctx, chatID, d.MessageID)
	default:
		return 0, fmt.Errorf("flow: unknown directive %T", d)
	}
	if err != nil {
		logger.Warn(ctx, component, "flow.transport",
			slog.String("status", "fail"),
			slog.String("action", kind),
			slog.String("step", step.String()),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return id, newError(KindTransportFailure, kind, step, err)
	}
	return id, nil
}
