package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// jsonTimeFormat keeps millisecond precision so attempts and sweeps within the
// same second stay ordered in drq.log.
const jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// newJSONHandler writes one object per line with short keys: ts, level, msg,
// and caller. Durations such as backoff and elapsed render as "1.5s".
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			return slog.String("ts", attr.Value.Time().UTC().Format(jsonTimeFormat))
		case slog.LevelKey:
			return slog.String("level", strings.ToLower(attr.Value.String()))
		case slog.SourceKey:
			src, ok := attr.Value.Any().(*slog.Source)
			if !ok || src == nil {
				return slog.Attr{}
			}
			return slog.String("caller", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}
