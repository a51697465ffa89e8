package metrics

import (
	"net/http"
	"strconv"
)

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// statusClass returns the class of an HTTP status code, e.g. "4xx".
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// RequestMiddleware returns chi-compatible middleware that counts requests by
// method and status class, and errors (status >= 400), in m.
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.IncRequests(r.Method, statusClass(rec.status))
			if rec.status >= 400 {
				m.IncErrors()
			}
		})
	}
}
