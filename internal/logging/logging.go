// Package logging provides the compiler host's structured logging on top
// of log/slog. The core pipeline stays pure; only the hosts (CLI, HTTP
// service) and the stage-boundary instrumentation in core/compiler log,
// and they all go through the event helpers here so field names stay
// consistent across adapters.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Level selects the minimum severity that is emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the output encoding.
type Format int

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = iota
	// FormatText emits key=value text for interactive use.
	FormatText
)

// current holds the active *slog.Logger. Swapped atomically so the HTTP
// service can re-init verbosity without racing in-flight handlers.
var current atomic.Pointer[slog.Logger]

func init() {
	InitLogger(LevelInfo, FormatText)
}

// InitLogger replaces the process-wide logger, writing to stdout.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stdout, level, format)
}

// InitLoggerTo replaces the process-wide logger with one writing to w.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	opts := &slog.HandlerOptions{
		Level: slogLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var h slog.Handler
	if format == FormatText {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	l := slog.New(h)
	current.Store(l)
	slog.SetDefault(l)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the active logger.
func Logger() *slog.Logger {
	return current.Load()
}

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID stamps a request id into ctx for the HTTP middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stamped into ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext returns the active logger, annotated with the context's
// request id when one is present.
func FromContext(ctx context.Context) *slog.Logger {
	l := Logger()
	if id := RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// Event helpers. Each names its event and fixes the field set so the CLI
// and the service produce identical records for the same event.

// StageEntered records a pipeline stage starting work on a source unit.
func StageEntered(stage, sourceID string, args ...any) {
	Logger().Debug("stage_entered", append([]any{"stage", stage, "source_id", sourceID}, args...)...)
}

// StageFailed records a pipeline stage that produced diagnostics.
func StageFailed(stage, sourceID string, diagnosticCount int, args ...any) {
	Logger().Warn("stage_failed", append([]any{"stage", stage, "source_id", sourceID, "diagnostic_count", diagnosticCount}, args...)...)
}

// PackLoaded records a language pack registration.
func PackLoaded(packID, version, target string, args ...any) {
	Logger().Info("pack_loaded", append([]any{"pack_id", packID, "version", version, "target", target}, args...)...)
}

// PackError records a language pack failure (manifest validation,
// lowering, emit, scaffold).
func PackError(packID, operation string, err error, args ...any) {
	Logger().Error("pack_error", append([]any{"pack_id", packID, "operation", operation, "error", err.Error()}, args...)...)
}

// LoweringFallback records a pack-declared fallback substitution or
// warning (LOW002/LOW003).
func LoweringFallback(packID, code, feature string, args ...any) {
	Logger().Warn("lowering_fallback", append([]any{"pack_id", packID, "code", code, "feature", feature}, args...)...)
}

// WebSocketEvent records explain-watch hub activity.
func WebSocketEvent(event string, clientCount int, args ...any) {
	Logger().Info("websocket_event", append([]any{"event", event, "client_count", clientCount}, args...)...)
}

// ServerStartup records a service adapter coming up.
func ServerStartup(serverType, protocol string, port int, args ...any) {
	Logger().Info("server_startup", append([]any{"server_type", serverType, "protocol", protocol, "port", port}, args...)...)
}

// HTTPRequest records one completed HTTP request, annotated with the
// context's request id.
func HTTPRequest(ctx context.Context, method, path, remoteAddr string, status int, duration time.Duration) {
	FromContext(ctx).Info("http_request",
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
	)
}
