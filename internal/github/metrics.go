package github

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on octonet_graphql_requests_total
const (
	outcomeSuccess      = "success"
	outcomeRetry        = "retry"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
	outcomeTimeout      = "timeout"
	outcomeError        = "error"
)

var (
	graphqlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octonet_graphql_requests_total",
		Help: "GraphQL attempts by query and outcome",
	}, []string{"query", "outcome"})

	graphqlRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octonet_graphql_retries_total",
		Help: "GraphQL attempts retried after a gateway error",
	}, []string{"query"})

	graphqlLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "octonet_graphql_request_duration_seconds",
		Help:    "GraphQL round-trip latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"query"})

	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "octonet_graphql_rate_limit_remaining",
		Help: "Rate-limit points remaining after the last successful query",
	})
)
