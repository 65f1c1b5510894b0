package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsProcessedTotal counts telemetry readings run through the
	// perception pipeline, labelled by engine.
	ReadingsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perception_readings_processed_total",
			Help: "Total number of telemetry readings processed",
		},
		[]string{"engine_id"},
	)

	// AnomaliesDetectedTotal counts anomalous readings by severity.
	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perception_anomalies_detected_total",
			Help: "Total number of anomalous readings detected",
		},
		[]string{"engine_id", "severity"},
	)

	// AlertTransitionsTotal counts alert state machine transitions by the
	// severity they landed on.
	AlertTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perception_alert_transitions_total",
			Help: "Total number of alert severity transitions",
		},
		[]string{"engine_id", "to_severity"},
	)

	// ReadingsRejectedTotal counts readings dropped before scoring,
	// labelled by the reason they were rejected.
	ReadingsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perception_readings_rejected_total",
			Help: "Total number of readings rejected before scoring",
		},
		[]string{"reason"},
	)

	// PredictionDurationSeconds tracks how long a single reading takes to
	// score, including buffer and alert bookkeeping.
	PredictionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perception_prediction_duration_seconds",
			Help:    "Duration of a single anomaly prediction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perception_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)
