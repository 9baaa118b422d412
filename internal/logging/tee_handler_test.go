package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeHandlerCollapsesNilAndSingle(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(noopHandler); !ok {
		t.Fatal("expected no-op handler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerWritesEachHandlerAtItsOwnLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(info, debug)).With(String(FieldQueue, "music"))
	logger.Debug("attempt scheduled")
	logger.Info("entry succeeded")

	if strings.Contains(infoBuf.String(), "attempt scheduled") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "entry succeeded") {
		t.Fatalf("info handler missing info record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "attempt scheduled") || !strings.Contains(debugBuf.String(), "entry succeeded") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	for _, out := range []string{infoBuf.String(), debugBuf.String()} {
		if !strings.Contains(out, `"queue":"music"`) {
			t.Fatalf("expected queue attr propagated through WithAttrs, got %s", out)
		}
	}
}

func TestTeeHandlerEnabledWhenAnyHandlerAccepts(t *testing.T) {
	var a, b bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info disabled when no handler accepts it")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("expected warn enabled")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerKeepsWritingPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	h := TeeHandler(failingHandler{slog.NewJSONHandler(io.Discard, nil)}, slog.NewJSONHandler(&buf, nil))
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "sweep complete", 0)
	if err := h.Handle(context.Background(), record); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error reported, got %v", err)
	}
	if !strings.Contains(buf.String(), "sweep complete") {
		t.Fatalf("expected healthy sink to receive record, got %q", buf.String())
	}
}

func TestTeeHandlerWithGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	var other bytes.Buffer
	logger := slog.New(TeeHandler(slog.NewJSONHandler(&buf, nil), slog.NewJSONHandler(&other, nil)))
	logger.WithGroup("sweep").Info("done", Int("synced", 3))
	if !strings.Contains(buf.String(), `"sweep":{"synced":3}`) {
		t.Fatalf("expected grouped attrs, got %s", buf.String())
	}
}
