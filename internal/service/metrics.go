package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ovn_explorer_refresh_total",
		Help: "Refresh attempts by kind and resulting data status",
	}, []string{"kind", "status"})

	refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ovn_explorer_refresh_duration_seconds",
		Help:    "Time spent fetching, parsing and caching one kind",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	parseStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ovn_explorer_parse_stage_total",
		Help: "Parser stage that produced the resources (none when exhausted)",
	}, []string{"kind", "stage"})

	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ovn_explorer_cache_errors_total",
		Help: "Cache read/write failures by operation",
	}, []string{"kind", "op"})

	resourcesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ovn_explorer_resources",
		Help: "Resources currently held per kind",
	}, []string{"kind"})
)
