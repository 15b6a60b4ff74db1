// Package ml runs the price range model: it loads the pre-fitted artifact
// bundle once, drives a raw survey record through validation, feature
// derivation and encoding, classifies the aligned vector and decodes the
// price range label. It also serves predictions over HTTP.
package ml

import "pricerange/internal/features"

// PredictorInterface is what the HTTP layer needs from a pipeline.
type PredictorInterface interface {
	// Predict returns the price range for one raw record, or an error. No
	// partial result is ever returned.
	Predict(input features.RawInput) (*Prediction, error)

	// Health reports whether predictions can be served.
	Health() *HealthStatus
}
