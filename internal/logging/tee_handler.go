package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to the console and the drq.log file handler.
type teeHandler []slog.Handler

// TeeHandler duplicates every record to each non-nil handler, each filtering
// at its own level. It collapses to the lone handler when only one is set.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var tee teeHandler
	for _, h := range handlers {
		if h != nil {
			tee = append(tee, h)
		}
	}
	switch len(tee) {
	case 0:
		return noopHandler{}
	case 1:
		return tee[0]
	}
	return tee
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle clones the record per handler so attribute slices are never shared.
// A failing sink does not stop delivery to the others.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}
