package ml

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pricerange/internal/encoding"
	"pricerange/internal/features"
	"pricerange/internal/schema"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics the pipeline reports.
type MetricsInterface interface {
	PredictionsInc(label string)
	FailuresInc(reason string)
	InvalidInputsInc()
	UnknownValueInc(field string)
	LatencyObserve(seconds float64)
}

// Failure reasons reported to metrics.
const (
	ReasonInvalidCombination = "invalid_combination"
	ReasonUnknownValue       = "unknown_value"
	ReasonEncoding           = "encoding"
	ReasonShape              = "shape"
	ReasonClassify           = "classify"
)

// Prediction is the result of one pipeline run.
type Prediction struct {
	Label         string
	ClassIndex    int
	Probabilities map[string]float64
	// Engineered is the derived record before encoding.
	Engineered *features.Row
	// Vector is the aligned model input.
	Vector *encoding.FeatureVector
}

// Pipeline runs validation, row building, derivation, encoding and inference
// for one record at a time. Every call works on its own records; the bundle
// is only read.
type Pipeline struct {
	bundle  *Bundle
	metrics MetricsInterface
	strict  bool

	started     time.Time
	predictions atomic.Int64
	failures    atomic.Int64
	lastError   atomic.Value // string
}

// NewPipeline creates a pipeline over a loaded bundle. metrics may be nil. In
// strict mode any out-of-domain field value is rejected with
// *schema.UnknownValueError; otherwise such values are logged, counted and
// carried through as missing.
func NewPipeline(bundle *Bundle, metrics MetricsInterface, strict bool) *Pipeline {
	return &Pipeline{
		bundle:  bundle,
		metrics: metrics,
		strict:  strict,
		started: time.Now(),
	}
}

// Bundle returns the artifacts the pipeline serves.
func (p *Pipeline) Bundle() *Bundle {
	return p.bundle
}

// Predict returns the price range for one raw record.
func (p *Pipeline) Predict(input features.RawInput) (*Prediction, error) {
	if p == nil || p.bundle == nil {
		return nil, fmt.Errorf("pipeline is not initialised")
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	engineered, vec, err := p.transform(input)
	if err != nil {
		return nil, err
	}

	outcome, err := p.bundle.Engine.Predict(vec)
	if err != nil {
		var shapeErr *ModelInputShapeError
		if errors.As(err, &shapeErr) {
			log.Error().Err(err).Strs("columns", vec.Columns).Msg("aligned features do not match the model")
			return nil, p.fail(ReasonShape, err)
		}
		log.Error().Err(err).Msg("classification failed")
		return nil, p.fail(ReasonClassify, err)
	}

	p.predictions.Add(1)
	if p.metrics != nil {
		p.metrics.PredictionsInc(outcome.Label)
	}
	log.Debug().
		Str("label", outcome.Label).
		Int("class_index", outcome.ClassIndex).
		Dur("latency", time.Since(start)).
		Msg("prediction successful")

	return &Prediction{
		Label:         outcome.Label,
		ClassIndex:    outcome.ClassIndex,
		Probabilities: outcome.Probabilities,
		Engineered:    engineered,
		Vector:        vec,
	}, nil
}

// Features runs the pipeline up to the aligned model input without
// classifying.
func (p *Pipeline) Features(input features.RawInput) (*encoding.FeatureVector, error) {
	if p == nil || p.bundle == nil {
		return nil, fmt.Errorf("pipeline is not initialised")
	}
	_, vec, err := p.transform(input)
	return vec, err
}

func (p *Pipeline) transform(input features.RawInput) (*features.Row, *encoding.FeatureVector, error) {
	if err := features.Validate(input); err != nil {
		if p.metrics != nil {
			p.metrics.InvalidInputsInc()
		}
		return nil, nil, p.fail(ReasonInvalidCombination, err)
	}

	if err := p.checkDomain(input); err != nil {
		return nil, nil, err
	}

	row := features.BuildRow(input, schema.RawColumns())
	engineered, err := features.Derive(row)
	if err != nil {
		log.Error().Err(err).Msg("senior student reached feature derivation, validator was bypassed")
		return nil, nil, p.fail(ReasonInvalidCombination, err)
	}
	log.Debug().Interface("engineered", engineered.Map()).Msg("features derived")

	vec, err := p.bundle.Transformer.Transform(engineered)
	if err != nil {
		log.Error().Err(err).Msg("feature encoding failed")
		return nil, nil, p.fail(ReasonEncoding, err)
	}
	if len(vec.Discarded) > 0 {
		log.Debug().Strs("columns", vec.Discarded).Msg("encoded columns not used by the model")
	}
	return engineered, vec, nil
}

func (p *Pipeline) checkDomain(input features.RawInput) error {
	issues, err := schema.CheckDomain(input)
	if err != nil {
		return p.fail(ReasonUnknownValue, err)
	}
	if len(issues) == 0 {
		return nil
	}

	errs := make([]error, len(issues))
	for i, issue := range issues {
		if p.metrics != nil {
			p.metrics.UnknownValueInc(issue.Field)
		}
		log.Warn().
			Str("field", issue.Field).
			Interface("value", issue.Value).
			Bool("strict", p.strict).
			Msg("value outside the input domain")
		errs[i] = issue
	}

	if p.strict {
		if p.metrics != nil {
			p.metrics.InvalidInputsInc()
		}
		return p.fail(ReasonUnknownValue, errors.Join(errs...))
	}
	return nil
}

func (p *Pipeline) fail(reason string, err error) error {
	p.failures.Add(1)
	p.lastError.Store(err.Error())
	if p.metrics != nil {
		p.metrics.FailuresInc(reason)
	}
	return err
}

// HealthStatus summarises the pipeline for the health endpoint.
type HealthStatus struct {
	Healthy         bool    `json:"healthy"`
	ModelLoaded     bool    `json:"model_loaded"`
	ModelVersion    string  `json:"model_version"`
	PredictionCount int64   `json:"prediction_count"`
	FailureCount    int64   `json:"failure_count"`
	LastError       string  `json:"last_error,omitempty"`
	StrictDomain    bool    `json:"strict_domain"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// Health reports the pipeline's state. Failures caused by bad input do not
// make the pipeline unhealthy.
func (p *Pipeline) Health() *HealthStatus {
	if p == nil || p.bundle == nil {
		return &HealthStatus{Healthy: false}
	}
	status := &HealthStatus{
		Healthy:         true,
		ModelLoaded:     true,
		ModelVersion:    p.bundle.Metadata.Version,
		PredictionCount: p.predictions.Load(),
		FailureCount:    p.failures.Load(),
		StrictDomain:    p.strict,
		UptimeSeconds:   time.Since(p.started).Seconds(),
	}
	if s, ok := p.lastError.Load().(string); ok {
		status.LastError = s
	}
	return status
}
