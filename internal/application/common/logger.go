package common

import "context"

// FacilityLogger records run and facility events
type FacilityLogger interface {
	Log(level, message string, metadata map[string]interface{})
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger FacilityLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op logger if not found
func LoggerFromContext(ctx context.Context) FacilityLogger {
	if logger, ok := ctx.Value(loggerKey).(FacilityLogger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (fallback when no logger in context)
type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]interface{}) {
	// Do nothing
}

// MultiLogger fans every entry out to several loggers
type MultiLogger []FacilityLogger

func (m MultiLogger) Log(level, message string, metadata map[string]interface{}) {
	for _, l := range m {
		l.Log(level, message, metadata)
	}
}
