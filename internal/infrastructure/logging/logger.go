// Package logging provides structured logging infrastructure for the clawsync
// application. It wraps Go's standard log/slog package with context-aware
// logging and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// SyncIDKey is the context key for per-attempt sync IDs.
	SyncIDKey contextKey = "sync_id"
	// ChannelKey is the context key for the active push channel name.
	ChannelKey contextKey = "channel"
	// LayoutKey is the context key for the restore layout being attempted.
	LayoutKey contextKey = "layout"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for clawsync.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
	mu      sync.RWMutex
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize time format
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = parseLevel(level)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+6)

	if v := ctx.Value(SyncIDKey); v != nil {
		enriched = append(enriched, "sync_id", v)
	}
	if v := ctx.Value(ChannelKey); v != nil {
		enriched = append(enriched, "channel", v)
	}
	if v := ctx.Value(LayoutKey); v != nil {
		enriched = append(enriched, "layout", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithSyncID adds a sync attempt ID to the context.
func WithSyncID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SyncIDKey, id)
}

// WithChannel adds the push channel name to the context.
func WithChannel(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ChannelKey, name)
}

// WithLayout adds the restore layout name to the context.
func WithLayout(ctx context.Context, layout string) context.Context {
	return context.WithValue(ctx, LayoutKey, layout)
}

// SyncID extracts the sync attempt ID from context.
func SyncID(ctx context.Context) string {
	if v := ctx.Value(SyncIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// --- Domain-specific logging helpers ---

// LogPushStart logs the start of a push attempt.
func LogPushStart(ctx context.Context, logger *Logger, channel string) {
	logger.InfoContext(ctx, "push started", "channel", channel)
}

// LogPushComplete logs a completed push.
func LogPushComplete(ctx context.Context, logger *Logger, channel string, duration time.Duration, lastSync time.Time) {
	logger.InfoContext(ctx, "push completed",
		"channel", channel,
		"duration_ms", duration.Milliseconds(),
		"last_sync", lastSync.Format(time.RFC3339),
	)
}

// LogPushFailed logs a failed push attempt.
func LogPushFailed(ctx context.Context, logger *Logger, channel, kind, errMsg string, duration time.Duration) {
	logger.WarnContext(ctx, "push failed",
		"channel", channel,
		"kind", kind,
		"error", errMsg,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogRestoreSkipped logs that the staleness gate blocked a restore.
func LogRestoreSkipped(ctx context.Context, logger *Logger, local, remote time.Time) {
	logger.InfoContext(ctx, "restore skipped, local state is current",
		"local_marker", local.Format(time.RFC3339),
		"remote_marker", remote.Format(time.RFC3339),
	)
}

// LogRestoreComplete logs a successful restore.
func LogRestoreComplete(ctx context.Context, logger *Logger, layout string, duration time.Duration) {
	logger.InfoContext(ctx, "restore completed",
		"layout", layout,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogRestoreLayoutFailed logs a layout attempt that fell through.
func LogRestoreLayoutFailed(ctx context.Context, logger *Logger, layout string, err error) {
	logger.WarnContext(ctx, "restore layout failed, trying next",
		"layout", layout,
		"error", err.Error(),
	)
}
