package dav

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okhani/dav/pkg/metrics"
)

// metricsWriter wraps http.ResponseWriter to capture the status code.
type metricsWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

func recordRequest(method string, status int, durationMs float64) {
	code := strconv.Itoa(status)
	metrics.RecordRequest(method, code)
	metrics.RecordRequestDuration(method, code, durationMs)
}

func recordBodySize(n int) {
	if n > 0 {
		metrics.RecordRequestBodySize(n)
	}
}
