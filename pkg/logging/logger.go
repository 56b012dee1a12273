package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace is below DEBUG and used for per-key extraction chatter.
const LevelTrace = slog.LevelDebug - 4

var (
	logger atomic.Pointer[slog.Logger]
	out    io.Writer = os.Stderr
	level  atomic.Int64

	jsonOutput atomic.Bool
)

// Output formats accepted by Configure.
const (
	FormatCompact = "compact"
	FormatJSON    = "json"
)

func init() {
	level.Store(int64(slog.LevelInfo))
	logger.Store(slog.New(NewCompactHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Configure selects the level and output format in one step.
func Configure(l slog.Level, format string) error {
	switch format {
	case "", FormatCompact:
		SetLevel(l)
	case FormatJSON:
		SetJSONOutput(l)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetLevel changes the level and switches to compact output
func SetLevel(l slog.Level) {
	level.Store(int64(l))
	jsonOutput.Store(false)
	logger.Store(slog.New(NewCompactHandler(out, &slog.HandlerOptions{Level: l})))
}

// SetJSONOutput switches to JSON output, for log collectors
func SetJSONOutput(l slog.Level) {
	level.Store(int64(l))
	jsonOutput.Store(true)
	logger.Store(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: l})))
}

// SetOutput redirects output to w, keeping the current level and format.
func SetOutput(w io.Writer) {
	out = w
	if jsonOutput.Load() {
		SetJSONOutput(slog.Level(level.Load()))
		return
	}
	SetLevel(slog.Level(level.Load()))
}

// New returns a logger tagged with component=<name>. It follows later
// SetLevel/SetJSONOutput calls, so it can be created at package init.
func New(component string) *slog.Logger {
	return slog.New(&componentHandler{attrs: []slog.Attr{slog.String("component", component)}})
}

// componentHandler resolves the package logger on every call.
type componentHandler struct {
	attrs []slog.Attr
	group string
}

func (h *componentHandler) current() slog.Handler {
	inner := logger.Load().Handler().WithAttrs(h.attrs)
	if h.group != "" {
		inner = inner.WithGroup(h.group)
	}
	return inner
}

func (h *componentHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return logger.Load().Handler().Enabled(ctx, l)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetRequestID(ctx); id != "" {
		r.AddAttrs(slog.String("requestID", id))
	}
	return h.current().Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...), group: h.group}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{attrs: h.attrs, group: name}
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Info logs at INFO level through the untagged package logger.
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// Warn logs at WARN level through the untagged package logger.
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Error logs at ERROR level through the untagged package logger.
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}
