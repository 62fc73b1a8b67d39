package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects the global logger into a buffer for the duration of
// a test and restores the default afterwards.
func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, FormatJSON)
	t.Cleanup(func() { InitLogger(LevelInfo, FormatText) })
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines[len(lines)-1], "expected at least one log record")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestStageEvents(t *testing.T) {
	buf := capture(t, LevelDebug)

	StageEntered("parse", "demo.icl")
	rec := lastRecord(t, buf)
	assert.Equal(t, "stage_entered", rec["msg"])
	assert.Equal(t, "parse", rec["stage"])
	assert.Equal(t, "demo.icl", rec["source_id"])
	assert.Equal(t, "DEBUG", rec["level"])

	StageFailed("sema", "demo.icl", 3)
	rec = lastRecord(t, buf)
	assert.Equal(t, "stage_failed", rec["msg"])
	assert.Equal(t, float64(3), rec["diagnostic_count"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestPackEvents(t *testing.T) {
	buf := capture(t, LevelInfo)

	PackLoaded("python-core", "1.0.0", "python")
	rec := lastRecord(t, buf)
	assert.Equal(t, "pack_loaded", rec["msg"])
	assert.Equal(t, "python-core", rec["pack_id"])
	assert.Equal(t, "python", rec["target"])

	PackError("rust-core", "emit", errors.New("boom"))
	rec = lastRecord(t, buf)
	assert.Equal(t, "pack_error", rec["msg"])
	assert.Equal(t, "emit", rec["operation"])
	assert.Equal(t, "boom", rec["error"])

	LoweringFallback("web-core", "LOW003", "loop")
	rec = lastRecord(t, buf)
	assert.Equal(t, "lowering_fallback", rec["msg"])
	assert.Equal(t, "LOW003", rec["code"])
	assert.Equal(t, "loop", rec["feature"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Info("quiet")
	assert.Empty(t, buf.String())

	Warn("loud")
	rec := lastRecord(t, buf)
	assert.Equal(t, "loud", rec["msg"])
}

func TestRequestIDContext(t *testing.T) {
	buf := capture(t, LevelInfo)

	ctx := WithRequestID(t.Context(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Empty(t, RequestID(t.Context()))

	FromContext(ctx).Info("hello")
	rec := lastRecord(t, buf)
	assert.Equal(t, "req-42", rec["request_id"])
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	buf := capture(t, LevelInfo)

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/check", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "http_request", rec["msg"])
	assert.Equal(t, "/check", rec["path"])
	assert.Equal(t, float64(http.StatusTeapot), rec["status_code"])
	assert.Equal(t, seen, rec["request_id"])
}

func TestMiddlewareHonorsInboundID(t *testing.T) {
	capture(t, LevelError)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-7", RequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "upstream-7", rr.Header().Get("X-Request-ID"))
}
