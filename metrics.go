package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dentalytics_reports_total",
			Help: "Reports served, by channel and source (api or snapshot).",
		},
		[]string{"channel", "source"},
	)

	apiErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dentalytics_api_errors_total",
			Help: "Failed report fetches, by channel and error class.",
		},
		[]string{"channel", "class"},
	)
)
