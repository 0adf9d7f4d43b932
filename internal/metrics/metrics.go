package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "todolist"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by full method and status code.",
		},
		[]string{"method", "code"},
	)

	todoMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "todo_mutations_total",
			Help:      "Successful todo mutations by operation.",
		},
		[]string{"op"},
	)

	storageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed storage round trips by operation.",
		},
		[]string{"op"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, grpcRequests, todoMutations, storageErrors)
	})
}

// ObserveHTTP records one served HTTP request.
func ObserveHTTP(method, route string, status int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// IncGRPC counts a gRPC call by method and status code name.
func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// IncMutation counts a successful create or delete.
func IncMutation(op string) {
	todoMutations.WithLabelValues(op).Inc()
}

// IncStorageError counts a failed storage call.
func IncStorageError(op string) {
	storageErrors.WithLabelValues(op).Inc()
}
