package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

var httpLog = New("http")

// RequestIDMiddleware tags every request with an ID (taken from X-Request-ID
// or generated) and logs its outcome. Server errors log at ERROR, client
// errors such as unknown issue keys at WARN. Metrics scrapes only log at
// TRACE and event streams log when they open and when they close.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set(requestIDHeader, requestID)

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		quiet := r.URL.Path == "/metrics"
		stream := strings.HasPrefix(r.URL.Path, "/api/subscribe/")
		if stream {
			httpLog.InfoContext(ctx, "stream opened", "path", r.URL.Path, "remote", r.RemoteAddr)
		}

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.written,
			"durationMs", elapsed.Milliseconds(),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			httpLog.ErrorContext(ctx, "request failed", attrs...)
		case rec.status >= http.StatusBadRequest:
			httpLog.WarnContext(ctx, "request rejected", attrs...)
		case stream:
			httpLog.InfoContext(ctx, "stream closed", attrs...)
		case quiet:
			httpLog.Log(ctx, LevelTrace, "metrics scraped", attrs...)
		default:
			httpLog.InfoContext(ctx, "request served", attrs...)
		}
	})
}

// responseRecorder remembers the status and body size of a response.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Flush keeps event streams working through the wrapper.
func (rw *responseRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
