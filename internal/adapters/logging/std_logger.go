package logging

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

var levels = map[string]slog.Level{
	"DEBUG":   slog.LevelDebug,
	"INFO":    slog.LevelInfo,
	"WARN":    slog.LevelWarn,
	"WARNING": slog.LevelWarn,
	"ERROR":   slog.LevelError,
}

// StdLogger writes log entries through a slog text or JSON handler
type StdLogger struct {
	handler slog.Handler
	clock   shared.Clock
}

// NewStdLogger creates a logger. level is one of debug, info, warn, error;
// format is "text" or "json". If clock is nil, uses RealClock.
func NewStdLogger(out io.Writer, scope, level, format string, clock shared.Clock) *StdLogger {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: formatTime,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &StdLogger{
		handler: handler.WithAttrs([]slog.Attr{slog.String("scope", scope)}),
		clock:   clock,
	}
}

func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToUpper(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// formatTime drops sub-second precision from the record time
func formatTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

// Log implements common.FacilityLogger
func (l *StdLogger) Log(level, message string, metadata map[string]interface{}) {
	ctx := context.Background()
	lvl := parseLevel(level)
	if !l.handler.Enabled(ctx, lvl) {
		return
	}

	record := slog.NewRecord(l.clock.Now(), lvl, message, 0)
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make([]slog.Attr, 0, len(keys))
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, metadata[k]))
		}
		record.AddAttrs(slog.Attr{Key: "metadata", Value: slog.GroupValue(attrs...)})
	}
	_ = l.handler.Handle(ctx, record)
}
