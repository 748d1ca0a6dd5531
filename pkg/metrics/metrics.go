package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP request metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todos_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todos_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// Storage metrics
var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todos_store_operations_total",
			Help: "Total number of storage operations by operation and result",
		},
		[]string{"driver", "op", "result"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todos_store_operation_duration_seconds",
			Help:    "Latency in seconds of storage operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "op"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todos_cache_lookups_total",
			Help: "Redis cache lookups by result; error also counts failed writes",
		},
		[]string{"result"},
	)
)

// EventsPublished counts lifecycle events by type and result
var EventsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todos_events_published_total",
		Help: "Total number of todo lifecycle events handed to the broker",
	},
	[]string{"type", "result"},
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(StoreOperations, StoreOperationDuration, CacheLookups)
	prometheus.MustRegister(EventsPublished)
}
