// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrace_backups_exported_total",
		Help: "Backup documents written, by archive kind and result",
	}, []string{"archive", "result"})

	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrace_imports_total",
		Help: "Backup imports by mode (preview or apply) and result",
	}, []string{"mode", "result"})

	mergeRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrace_merge_records_total",
		Help: "Incoming job records processed by the merge engine, by classification",
	}, []string{"classification"})

	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrace_tool_calls_total",
		Help: "Tool calls handled, by tool and result",
	}, []string{"tool", "result"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techtrace_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// BackupExported counts one export attempt.
func BackupExported(archive string, err error) {
	backupsExported.WithLabelValues(archive, result(err)).Inc()
}

// ImportProcessed counts one preview or apply.
func ImportProcessed(mode string, err error) {
	importsTotal.WithLabelValues(mode, result(err)).Inc()
}

// MergeClassified adds n records under a merge classification.
func MergeClassified(classification string, n int) {
	if n <= 0 {
		return
	}
	mergeRecords.WithLabelValues(classification).Add(float64(n))
}

// ToolCalled counts one tool invocation.
func ToolCalled(tool string, err error) {
	toolCalls.WithLabelValues(tool, result(err)).Inc()
}

// Middleware records request latency. Paths are taken from the route
// pattern when the router provides one, so ids do not inflate cardinality.
func Middleware(pattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if pattern != nil {
				if p := pattern(r); p != "" {
					path = p
				}
			}
			httpRequestDuration.
				WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush keeps streaming responses working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
