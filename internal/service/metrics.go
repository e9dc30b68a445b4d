package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashion_finder_fallback_total",
			Help: "Number of times a pipeline stage fell back to canned data",
		},
		[]string{"stage"},
	)

	searchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fashion_finder_search_results",
			Help:    "Number of products returned per search request",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 10},
		},
		[]string{"engine"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fashion_finder_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
