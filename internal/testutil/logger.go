// Package testutil provides fakes, fixtures and logging helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log at debug level, so
// output only shows for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogRecorder keeps the messages logged through its Logger.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
	next    slog.Handler
}

// NewLogRecorder returns a recorder that also forwards records to t.Log.
func NewLogRecorder(t testing.TB) *LogRecorder {
	t.Helper()
	return &LogRecorder{next: NewTestLogger(t).Handler()}
}

// Logger returns a logger backed by the recorder.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(recordingHandler{r: r, next: r.next})
}

// Messages returns the recorded messages at or above level, in order.
func (r *LogRecorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.Level >= level {
			out = append(out, rec.Message)
		}
	}
	return out
}

type recordingHandler struct {
	r    *LogRecorder
	next slog.Handler
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordingHandler) Handle(ctx context.Context, rec slog.Record) error {
	h.r.mu.Lock()
	h.r.records = append(h.r.records, rec.Clone())
	h.r.mu.Unlock()
	return h.next.Handle(ctx, rec)
}

func (h recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return recordingHandler{r: h.r, next: h.next.WithAttrs(attrs)}
}

func (h recordingHandler) WithGroup(name string) slog.Handler {
	return recordingHandler{r: h.r, next: h.next.WithGroup(name)}
}
