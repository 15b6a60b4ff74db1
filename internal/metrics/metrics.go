// Package metrics provides Prometheus metrics for the price range service.
// It defines the prediction, input-quality and model metrics exposed on the
// metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter     // Total number of successful predictions
	PredictedLabels    *prometheus.CounterVec // Predictions by price range label
	PredictionFailures *prometheus.CounterVec // Failed predictions by reason
	PredictionLatency  prometheus.Histogram   // End-to-end pipeline latency

	// Input quality metrics
	InvalidInputs prometheus.Counter     // Inputs rejected before feature derivation
	UnknownValues *prometheus.CounterVec // Out-of-domain values by field

	// Model metrics
	ModelAge prometheus.Gauge // Age of the loaded model file in seconds

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // Requests by path and status code
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful price range predictions",
		}),
		PredictedLabels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predicted_labels_total",
			Help: "Predictions by predicted price range",
		}, []string{"label"}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Failed predictions by reason",
		}, []string{"reason"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction pipeline latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		InvalidInputs: factory.NewCounter(prometheus.CounterOpts{
			Name: "invalid_inputs_total",
			Help: "Inputs rejected before feature derivation",
		}),
		UnknownValues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unknown_values_total",
			Help: "Field values outside the input domain",
		}, []string{"field"}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model file in seconds",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path and status code",
		}, []string{"path", "code"}),
	}
}
