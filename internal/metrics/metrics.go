package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// HTTP endpoints
	EndpointTracks     = "tracks"
	EndpointUsers      = "users"
	EndpointGroups     = "groups"
	EndpointChallenges = "challenges"
	EndpointHealth     = "health"
	EndpointUnmatched  = "unmatched"

	// Cascade scan kinds
	CascadeTrack = "track"
	CascadeUser  = "user"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Cascade Metrics
var (
	CascadeDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_deletions_total",
			Help: "Total number of cascading deletions by deleted record kind",
		},
		[]string{"kind"},
	)
)
