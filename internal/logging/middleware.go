package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the status code a handler writes so the access
// log can report it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Middleware wraps next with request-id assignment and access logging.
// An inbound X-Request-ID header is honored so a proxy chain keeps one id
// end to end; otherwise a fresh UUID is assigned. The id is echoed on the
// response and stamped into the request context for FromContext.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := WithRequestID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequest(ctx, r.Method, r.URL.Path, r.RemoteAddr, status, time.Since(start))
	})
}
