package apiclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blok_client_requests_total",
			Help: "Total number of API requests issued by the client",
		},
		[]string{"method", "path", "status"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blok_client_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

func observe(method, path string, status int, elapsed time.Duration) {
	p := normalizePath(path)
	clientRequestsTotal.WithLabelValues(method, p, strconv.Itoa(status)).Inc()
	clientRequestDuration.WithLabelValues(method, p).Observe(elapsed.Seconds())
}

// normalizePath replaces numeric segments with :id and drops the query
// to keep label cardinality low
func normalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
