// Package metrics holds the prometheus collectors for the sync core and the
// development backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipesync_requests_issued_total",
		Help: "Backend requests issued by the sync core, by resource kind.",
	}, []string{"kind"})

	StaleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipesync_stale_responses_total",
		Help: "Responses discarded because a newer request for the same resource superseded them.",
	}, []string{"kind"})

	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipesync_fetch_errors_total",
		Help: "Feed fetches that failed and moved a store into the error state.",
	}, []string{"store"})

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipesync_mutations_total",
		Help: "Optimistic mutations by kind and final outcome.",
	}, []string{"kind", "outcome"})

	FavoriteWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipesync_favorite_writes_total",
		Help: "Favorite membership changes persisted to durable storage.",
	})

	FavoriteWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipesync_favorite_write_errors_total",
		Help: "Favorite persistence failures.",
	})

	DevServerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipesync_devserver_requests_total",
		Help: "Requests served by the development backend.",
	}, []string{"route", "status"})

	DevServerRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recipesync_devserver_request_duration_seconds",
		Help:    "Time to serve a development backend request, including injected latency.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
)
