package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/example/go-wordpiece/internal/server"
	"github.com/example/go-wordpiece/internal/vocab"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(name string) slog.Handler       { return c }

func (c *capturingHandler) attrMap(idx int) map[string]any {
	m := make(map[string]any)
	c.records[idx].Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func TestEncode_LogsRequestIDAndTextLen(t *testing.T) {
	cap := &capturingHandler{}
	logger := slog.New(cap)

	h := newTestHandler(&stubCodec{ids: []int{5, 6}}, server.WithLogger(logger))

	rec := post(h, "/encode", `{"text":"Hello world."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	if len(cap.records) == 0 {
		t.Fatal("want at least one log record, got none")
	}

	var found bool
	for i := range cap.records {
		attrs := cap.attrMap(i)
		if _, ok := attrs["text_len"]; ok {
			found = true
			if attrs["text_len"] != int64(len("Hello world.")) {
				t.Errorf("want text_len=%d, got %v", len("Hello world."), attrs["text_len"])
			}
			if attrs["tokens"] != int64(2) {
				t.Errorf("want tokens=2, got %v", attrs["tokens"])
			}
			if attrs["request_id"] != rec.Header().Get(server.RequestIDHeader) {
				t.Errorf("log request_id %v does not match response header", attrs["request_id"])
			}
			if _, ok := attrs["duration_ms"]; !ok {
				t.Error("want duration_ms attribute in log record")
			}
		}
	}
	if !found {
		t.Error("no log record contained a 'text_len' attribute")
	}
}

func TestDecode_LogsErrorOnFailure(t *testing.T) {
	cap := &capturingHandler{}
	logger := slog.New(cap)

	h := newTestHandler(&stubCodec{decodeErr: vocab.ErrIndexOutOfRange}, server.WithLogger(logger))

	rec := post(h, "/decode", `{"ids":[42]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d", rec.Code)
	}

	var foundError bool
	for i := range cap.records {
		attrs := cap.attrMap(i)
		if _, ok := attrs["error"]; ok {
			foundError = true
		}
	}
	if !foundError {
		t.Error("want a log record with an 'error' attribute on decode failure")
	}
}

func TestSetupLogger_LevelFromString(t *testing.T) {
	cases := []struct {
		level   string
		wantLvl slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo}, // default
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			lvl, err := server.ParseLogLevel(tc.level)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error: %v", tc.level, err)
			}
			if lvl != tc.wantLvl {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.level, lvl, tc.wantLvl)
			}
		})
	}
}

func TestSetupLogger_InvalidLevelReturnsError(t *testing.T) {
	_, err := server.ParseLogLevel("verbose")
	if err == nil {
		t.Error("want error for unknown log level")
	}
}
