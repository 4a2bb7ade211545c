package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/render"
	"github.com/m3rciful/suggestbot/internal/suggestion"
)

type call struct {
	Kind      string
	ChatID    int64
	MessageID int
	Text      string
	Image     string
	Tokens    []string
}

type fakeTransport struct {
	mu     sync.Mutex
	nextID int
	calls  []call
	fail   map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 100, fail: map[string]error{}}
}

func buttonTokens(b []render.Button) []string {
	out := make([]string, 0, len(b))
	for _, x := range b {
		out = append(out, x.Token)
	}
	return out
}

func (f *fakeTransport) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Kind]
}

func (f *fakeTransport) newID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, buttons []render.Button) (int, error) {
	if err := f.record(call{Kind: "send_text", ChatID: chatID, Text: text, Tokens: buttonTokens(buttons)}); err != nil {
		return 0, err
	}
	return f.newID(), nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, image, caption string, buttons []render.Button) (int, error) {
	if err := f.record(call{Kind: "send_photo", ChatID: chatID, Image: image, Text: caption, Tokens: buttonTokens(buttons)}); err != nil {
		return 0, err
	}
	return f.newID(), nil
}

func (f *fakeTransport) EditMedia(_ context.Context, chatID int64, id int, image, caption string, buttons []render.Button) error {
	return f.record(call{Kind: "edit_media", ChatID: chatID, MessageID: id, Image: image, Text: caption, Tokens: buttonTokens(buttons)})
}

func (f *fakeTransport) EditButtons(_ context.Context, chatID int64, id int, buttons []render.Button) error {
	return f.record(call{Kind: "edit_buttons", ChatID: chatID, MessageID: id, Tokens: buttonTokens(buttons)})
}

func (f *fakeTransport) Delete(_ context.Context, chatID int64, id int) error {
	return f.record(call{Kind: "delete", ChatID: chatID, MessageID: id})
}

func (f *fakeTransport) all() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeTransport) last() call {
	calls := f.all()
	if len(calls) == 0 {
		return call{}
	}
	return calls[len(calls)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// fakeCatalog serves canned data. When gate is set, calls signal on started
// and block until gate is closed.
type fakeCatalog struct {
	results   map[string][]catalog.SearchResult
	searchErr error
	details   map[string]catalog.DetailRecord
	lookupErr error

	gate    chan struct{}
	started chan string

	searches atomic.Int32
	lookups  atomic.Int32
}

func (f *fakeCatalog) wait(ctx context.Context, what string) error {
	if f.gate == nil {
		return nil
	}
	f.started <- what
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCatalog) Search(ctx context.Context, q string) ([]catalog.SearchResult, error) {
	f.searches.Add(1)
	if err := f.wait(ctx, "search:"+q); err != nil {
		return nil, err
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[q], nil
}

func (f *fakeCatalog) Lookup(ctx context.Context, id string) (catalog.DetailRecord, error) {
	f.lookups.Add(1)
	if err := f.wait(ctx, "lookup:"+id); err != nil {
		return catalog.DetailRecord{}, err
	}
	if f.lookupErr != nil {
		return catalog.DetailRecord{}, f.lookupErr
	}
	d, ok := f.details[id]
	if !ok {
		return catalog.DetailRecord{}, fmt.Errorf("%w: no such id %s", catalog.ErrUpstream, id)
	}
	return d, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	got  []suggestion.Suggestion
	fail error
}

func (f *fakePublisher) Publish(_ context.Context, s suggestion.Suggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, s)
	return nil
}
