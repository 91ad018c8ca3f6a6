package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

// =============================================================================
// Logger setup
// =============================================================================

func TestConfigs(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, DefaultConfig().Level)
	assert.Equal(t, slog.LevelInfo, DaemonConfig(nil).Level)

	debug := DebugConfig()
	assert.Equal(t, slog.LevelDebug, debug.Level)
	assert.True(t, debug.JSON)
	assert.True(t, debug.AddSource)
}

func TestInitSetsDebugFlag(t *testing.T) {
	captureLogs(t, Config{Level: slog.LevelDebug})
	assert.True(t, Debug)

	captureLogs(t, Config{Level: slog.LevelInfo})
	assert.False(t, Debug)
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, Config{Level: slog.LevelWarn})

	Info("hidden")
	Warn("shown", KeyCount, 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "count=2")
}

func TestJSONOutput(t *testing.T) {
	buf := captureLogs(t, Config{Level: slog.LevelDebug, JSON: true})

	DebugLog("sync finished", KeySyncID, "abc")
	assert.Contains(t, buf.String(), `"sync_id":"abc"`)
}

// =============================================================================
// Request context
// =============================================================================

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	assert.Len(t, id, 16)
	assert.NotEqual(t, id, GenerateRequestID())
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	fresh := NewRequestContext(nil) //nolint:staticcheck
	assert.Len(t, RequestIDFromContext(fresh), 16)
}

func TestContextLoggerCarriesRequestID(t *testing.T) {
	buf := captureLogs(t, Config{Level: slog.LevelDebug})

	ctx := WithRequestID(context.Background(), "tick-42")
	cl := FromContext(ctx).With(KeyOperation, "sync")
	cl.Info("started")
	cl.Debug("detail")

	out := buf.String()
	assert.Contains(t, out, "request_id=tick-42")
	assert.Contains(t, out, "op=sync")
	assert.Contains(t, out, "detail")
	assert.Equal(t, "tick-42", cl.RequestID())

	buf.Reset()
	WarnContext(ctx, "pkg level")
	assert.Contains(t, buf.String(), "request_id=tick-42")
}

// =============================================================================
// Masking
// =============================================================================

func TestMaskURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://calendar.google.com/calendar/ical/x%40group/private-abc/basic.ics", "https://calendar.google.com/***"},
		{"webcal://p01-caldav.icloud.com/published/2/token", "webcal://p01-caldav.icloud.com/***"},
		{"https://example.com", "https://example.com"},
		{"https://example.com/?key=1", "https://example.com/***"},
		{"not a url", "*********"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskURL(tt.in))
		})
	}
}

func TestIsSensitiveField(t *testing.T) {
	assert.True(t, IsSensitiveField("Authorization"))
	assert.True(t, IsSensitiveField("webhook_token"))
	assert.True(t, IsSensitiveField("redis_url"))
	assert.False(t, IsSensitiveField("summary"))
}

func TestMaskArgs(t *testing.T) {
	args := []any{"token", "abcdefghijkl", KeyURL, "https://outlook.office365.com/owa/calendar/secret/reachcalendar.ics", KeyCount, 3, "dangling"}
	masked := MaskArgs(args)

	require.Len(t, masked, len(args))
	assert.Equal(t, "********", masked[1])
	assert.Equal(t, "https://outlook.office365.com/***", masked[3])
	assert.Equal(t, 3, masked[5])
	assert.Equal(t, "dangling", masked[6])
	assert.Equal(t, "abcdefghijkl", args[1], "input must not be modified")
}

func TestMaskString(t *testing.T) {
	s := MaskString("fetch https://cal.example.com/feed/abc123.ics failed; local http://localhost:8080/x ok")
	assert.Contains(t, s, "https://cal.example.com/***")
	assert.Contains(t, s, "http://localhost:8080/***")
	assert.NotContains(t, s, "abc123")
}

func TestMaskSensitiveData(t *testing.T) {
	out := MaskSensitiveData(map[string]string{"password": "hunter2", "name": "standup"})
	assert.Equal(t, "*******", out["password"])
	assert.Equal(t, "standup", out["name"])
	assert.Empty(t, MaskSensitiveData(nil))
}

func TestHandlerMasksAttributes(t *testing.T) {
	buf := captureLogs(t, Config{Level: slog.LevelInfo})

	Info("fetching feed", KeyURL, "https://calendar.google.com/calendar/ical/secret-token/basic.ics", "api_key", "sk-123")

	out := buf.String()
	assert.NotContains(t, out, "secret-token")
	assert.NotContains(t, out, "sk-123")
	assert.Contains(t, out, "calendar.google.com")
}

func TestHandlerMasksErrorAttributes(t *testing.T) {
	buf := captureLogs(t, Config{Level: slog.LevelInfo})

	err := fmt.Errorf("sync: %w", errors.New(`Get "https://127.0.0.1:1/calendar/ical/private-SECRETTOKEN/basic.ics": connection refused`))
	Error("calendar sync failed", KeyError, err)

	out := buf.String()
	assert.NotContains(t, out, "SECRETTOKEN")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "https://127.0.0.1:1/***")
}
