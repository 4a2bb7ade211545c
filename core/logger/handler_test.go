package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/suggestbot/core/config"
)

func newTestHandler(t *testing.T, enc encoder) (*structuredHandler, *asyncWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		encode: enc,
	})
	return h, aw, buf
}

func closeAndRead(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	h, aw, buf := newTestHandler(t, encodeKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, slog.New(h).With("component", "flow"), slog.LevelInfo, "flow.transition",
		slog.String("status", "ok"),
		slog.String("from_step", "name"),
		slog.String("to_step", "rate"),
	)
	line := closeAndRead(t, aw, buf)
	require.NotEmpty(t, line)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=flow", "event=flow.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(expected), line)
	for i, prefix := range expected {
		assert.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Less(t, strings.Index(line, "from_step="), strings.Index(line, "to_step="))
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	h, aw, buf := newTestHandler(t, encodeJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithHandler(ctx, "callback:next_item")

	LogEvent(ctx, slog.New(h).With("component", "catalog"), slog.LevelError, "catalog.search.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "UPSTREAM_FAILURE"),
	)
	line := closeAndRead(t, aw, buf)
	require.True(t, strings.HasPrefix(line, "{"), line)

	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"catalog"`, `"event":"catalog.search.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"handler":"callback:next_item"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greaterf(t, idx, pos, "prefix %s not in order within %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	t.Run("kv", func(t *testing.T) {
		h, aw, buf := newTestHandler(t, encodeKV)
		raw := "123:456:789"
		LogEvent(WithRID(Background(), raw), slog.New(h), slog.LevelInfo, "rid.test")
		line := closeAndRead(t, aw, buf)
		assert.Contains(t, line, "rid="+CompactRID(raw))
		assert.NotContains(t, line, "rid_full=")
		assert.Contains(t, line, "component=app")
	})
	t.Run("json", func(t *testing.T) {
		h, aw, buf := newTestHandler(t, encodeJSON)
		raw := "12:34:56"
		LogEvent(WithRID(Background(), raw), slog.New(h), slog.LevelInfo, "rid.test")
		line := closeAndRead(t, aw, buf)
		assert.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
		assert.Contains(t, line, `"rid_full":"`+raw+`"`)
		assert.Contains(t, line, `"ts_unix_nano"`)
	})
}

func TestStructuredHandlerEnumerations(t *testing.T) {
	h, aw, buf := newTestHandler(t, encodeKV)
	LogEvent(Background(), slog.New(h), slog.LevelWarn, "flow.stale",
		slog.String("status", " STALE "),
		slog.String("outcome", "exploded"),
		slog.Duration("duration", 1499*time.Microsecond),
		slog.Any("err", errors.New("old message")),
	)
	line := closeAndRead(t, aw, buf)
	assert.Contains(t, line, "status=stale")
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, "duration_ms=1 ")
	assert.Contains(t, line, `err="old message"`)
}

func TestDurationKey(t *testing.T) {
	cases := map[string]string{
		"duration":        "duration_ms",
		"lookup_duration": "lookup_duration_ms",
		"wait_ms":         "wait_ms",
		"elapsed":         "elapsed_ms",
	}
	for in, want := range cases {
		assert.Equal(t, want, durationKey(in), in)
	}
}

func TestCompactRIDPassthrough(t *testing.T) {
	assert.Equal(t, "", CompactRID("  "))
	assert.Equal(t, "a:b:c", CompactRID("a:b:c"))
	assert.Equal(t, "1:2", CompactRID("1:2"))
	assert.Equal(t, "z.10.0", CompactRID("35:36:0"))
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "STALE" }

func TestErrCode(t *testing.T) {
	assert.Equal(t, "", ErrCode(nil))
	assert.Equal(t, "", ErrCode(errors.New("plain")))
	wrapped := errors.Join(errors.New("ctx"), codedErr{})
	assert.Equal(t, "STALE", ErrCode(wrapped))
	assert.Equal(t, "fail", Status(wrapped))
	assert.Equal(t, "ok", Status(nil))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	n, d := parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{n, d})
	n, d = parseRatioSpec("2/5")
	assert.Equal(t, [2]int{2, 5}, [2]int{n, d})
	n, d = parseRatioSpec("off")
	assert.Equal(t, [2]int{0, 0}, [2]int{n, d})
}

func TestGroupsBecomeDottedKeys(t *testing.T) {
	h, aw, buf := newTestHandler(t, encodeKV)
	log := slog.New(h).WithGroup("db").With("host", "localhost")
	log.Info("db.connect", slog.Group("pool", slog.Int("max", 5)))
	line := closeAndRead(t, aw, buf)
	assert.Contains(t, line, "db.host=localhost")
	assert.Contains(t, line, "db.pool.max=5")
	assert.Contains(t, line, "event=db.connect")
}

func TestMetaDoesNotOverrideAttrs(t *testing.T) {
	h, aw, buf := newTestHandler(t, encodeKV)
	ctx := WithUpdateMeta(Background(), 1, 2, 3)
	LogEvent(ctx, slog.New(h), slog.LevelInfo, "x", slog.Int64("user_id", 99))
	line := closeAndRead(t, aw, buf)
	assert.Contains(t, line, "user_id=99")
	assert.Contains(t, line, "chat_id=3")

	m := MetaFrom(WithHandler(ctx, "command.movie"))
	assert.Equal(t, Meta{UpdateID: 1, UserID: 2, ChatID: 3, Handler: "command.movie"}, m)
	assert.Equal(t, Meta{}, MetaFrom(nil))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "héllo", SanitizeLimit("héllo wörld", 5))
	assert.Equal(t, "", SanitizeLimit("x", 0))
	assert.Equal(t, "short", SanitizeLimit("short", 10))
}

func TestSettingsFrom(t *testing.T) {
	s := settingsFrom(nil)
	assert.Equal(t, "json", s.encode.name)
	assert.Equal(t, [2]int{1, 50}, s.sample)

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "warning",
		Profile:     "Dev",
		KeysOrder:   "event, ts,,level",
		DebugSample: "off",
		Dir:         "/var/log/bot",
		BotFile:     "bot.log",
	}}
	s = settingsFrom(cfg)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, "kv", s.encode.name)
	assert.Equal(t, []string{"event", "ts", "level"}, s.order)
	assert.Equal(t, [2]int{0, 0}, s.sample)
	assert.Equal(t, "/var/log/bot/bot.log", s.file)

	cfg.Logging.Format = "json"
	assert.Equal(t, "json", settingsFrom(cfg).encode.name)
}

func TestStructuredHandlerDefaultsToJSON(t *testing.T) {
	h, aw, buf := newTestHandler(t, encoder{})
	assert.Equal(t, "json", h.cfg.encode.name)

	LogEvent(Background(), slog.New(h), slog.LevelInfo, "app.ready")
	line := closeAndRead(t, aw, buf)
	assert.True(t, strings.HasPrefix(line, "{"), line)
	assert.Contains(t, line, `"event":"app.ready"`)
}
