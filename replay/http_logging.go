// ABOUTME: Request logging middleware for the replay server in the log.Printf key=value style.
// ABOUTME: The recorder forwards Flush so streamed responses are not buffered by the middleware.
package replay

import (
	"net/http"
	"time"
)

// statusRecorder captures the status code and body size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	// A handler that writes without WriteHeader gets an implicit 200.
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Flush passes through so NDJSON chunks reach the client as they are written.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestLogger replaces chi's default logger so replay access lines match
// the key=value format the client logs use.
func requestLogger(logf func(string, ...any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// Nothing written at all still went out as a 200.
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logf("replay request method=%s path=%s status=%d bytes=%d duration=%s remote=%s",
				r.Method,
				r.URL.Path,
				status,
				rec.bytes,
				time.Since(start).Round(time.Microsecond),
				r.RemoteAddr,
			)
		})
	}
}
