package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4, MaxRetries: 2, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	t.Cleanup(d.Close)
	return d
}

func TestDoReturnsCapturedResult(t *testing.T) {
	d := newTestDispatcher(t)
	var id int
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		id = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Zero(t, d.ErrorCount())
}

func TestDoRetriesTransientErrors(t *testing.T) {
	d := newTestDispatcher(t)
	var calls atomic.Int32
	err := d.Do(context.Background(), "send.photo", "sendPhoto", func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoStopsOnPermanentError(t *testing.T) {
	d := newTestDispatcher(t)
	boom := errors.New("Bad Request: chat not found (400)")
	var calls atomic.Int32
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	d := newTestDispatcher(t)
	var calls atomic.Int32
	err := d.Do(context.Background(), "edit.media", "editMessageMedia", func() error {
		calls.Add(1)
		return timeoutErr{}
	})
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "callback.answer", "answerCallbackQuery", func() error {
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "x", "", func() error { return nil }), ErrQueueClosed)
}

func TestRedactToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": timeout`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, redactToken(err))
}

func TestFloodErrorUsesRetryAfter(t *testing.T) {
	d := newTestDispatcher(t)
	delay, retry := d.retryDelay(tele.FloodError{RetryAfter: 3}, 1)
	assert.True(t, retry)
	assert.Equal(t, 3*time.Second, delay)

	_, retry = d.retryDelay(errors.New("Forbidden: bot was blocked by the user (403)"), 1)
	assert.False(t, retry)
}

func TestCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "x", "", func() error { return nil }), ErrQueueClosed)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "timeout", classifyError(timeoutErr{}))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: Bad Request (400)")))
	assert.Equal(t, "http_4xx", classifyError(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "unknown", classifyError(errors.New("weird")))
}
