package ml

import (
	"errors"
	"math"
	"sync"
	"testing"

	"pricerange/internal/features"
	"pricerange/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_PredictExampleRecord(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPipeline(newTestBundle(t), metrics, false)

	pred, err := p.Predict(exampleInput())
	require.NoError(t, err)

	assert.Equal(t, "150-200", pred.Label)
	assert.Equal(t, 1, pred.ClassIndex)
	assert.InDelta(t, 1.0, pred.Probabilities["100-150"]+pred.Probabilities["150-200"]+
		pred.Probabilities["200-250"]+pred.Probabilities["50-100"], 1e-9)

	row := pred.Engineered
	assert.Equal(t, features.TextCell("26-35"), row.Cell(features.ColAgeGroup))
	assert.Equal(t, features.NumberCell(12), row.Cell(features.ColZasScore))
	assert.Equal(t, features.NumberCell(0.6), row.Cell(features.ColCfAbScore))
	assert.Equal(t, features.NumberCell(1), row.Cell(features.ColLoyaltyScore))
	assert.Equal(t, features.NumberCell(0), row.Cell(features.ColBrandSwitch))

	assert.Equal(t, p.Bundle().Transformer.Features(), pred.Vector.Columns)
	assert.Equal(t, 1, metrics.Predictions())
	assert.Equal(t, 1, metrics.latencyCount)
}

func TestPipeline_PredictIsIdempotent(t *testing.T) {
	p := NewPipeline(newTestBundle(t), nil, false)
	input := exampleInput()

	first, err := p.Predict(input)
	require.NoError(t, err)
	second, err := p.Predict(input)
	require.NoError(t, err)

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Vector.Values, second.Vector.Values)
	assert.Equal(t, schema.ExampleRecord(), map[string]any(input))
}

func TestPipeline_SeniorStudent(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPipeline(newTestBundle(t), metrics, false)

	input := exampleInput()
	input[schema.FieldAge] = 60
	input[schema.FieldOccupation] = schema.OccupationStudent

	pred, err := p.Predict(input)
	assert.Nil(t, pred)

	var combo *features.InvalidCombinationError
	require.True(t, errors.As(err, &combo))
	assert.Equal(t, features.StageValidation, combo.Stage)
	assert.Equal(t, 1, metrics.Failures(ReasonInvalidCombination))
	assert.Equal(t, 1, metrics.invalidInputs)
	assert.Zero(t, metrics.Predictions())
}

func TestPipeline_LenientDomain(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPipeline(newTestBundle(t), metrics, false)

	input := exampleInput()
	input[schema.FieldZone] = "Suburban"

	pred, err := p.Predict(input)
	require.NoError(t, err)

	v, ok := pred.Vector.Value(features.ColZoneEncoded)
	require.True(t, ok)
	assert.True(t, math.IsNaN(v))
	assert.Equal(t, 1, metrics.unknownValues[schema.FieldZone])
}

func TestPipeline_StrictDomain(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPipeline(newTestBundle(t), metrics, true)

	input := exampleInput()
	input[schema.FieldZone] = "Suburban"
	input[schema.FieldGender] = "X"

	_, err := p.Predict(input)
	var unknown *schema.UnknownValueError
	require.True(t, errors.As(err, &unknown))
	assert.Contains(t, err.Error(), schema.FieldZone)
	assert.Contains(t, err.Error(), schema.FieldGender)
	assert.Equal(t, 1, metrics.Failures(ReasonUnknownValue))
	assert.Equal(t, 2, len(metrics.unknownValues))
}

func TestPipeline_MissingFields(t *testing.T) {
	p := NewPipeline(newTestBundle(t), nil, true)

	pred, err := p.Predict(features.RawInput{schema.FieldAge: 40})
	require.NoError(t, err)
	assert.Equal(t, 25, pred.Vector.Len())

	v, _ := pred.Vector.Value(features.ColIncomeEncoded)
	assert.True(t, math.IsNaN(v))
	v, _ = pred.Vector.Value("gender_M")
	assert.Equal(t, 0.0, v)
}

func TestPipeline_ClassifierFailure(t *testing.T) {
	info, enc := loadTestArtifacts(t)
	boom := errors.New("boom")
	b, err := NewBundle(info, enc, &stubClassifier{features: 25, proba: []float64{0.25, 0.25, 0.25, 0.25}, err: boom}, nil)
	require.NoError(t, err)

	metrics := &MockMetrics{}
	p := NewPipeline(b, metrics, false)

	_, err = p.Predict(exampleInput())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, metrics.Failures(ReasonClassify))

	health := p.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, int64(1), health.FailureCount)
	assert.Contains(t, health.LastError, "boom")
}

func TestPipeline_Features(t *testing.T) {
	p := NewPipeline(newTestBundle(t), nil, false)

	vec, err := p.Features(exampleInput())
	require.NoError(t, err)
	v, _ := vec.Value("zas_score")
	assert.Equal(t, 12.0, v)
}

func TestPipeline_NotInitialised(t *testing.T) {
	var p *Pipeline
	_, err := p.Predict(exampleInput())
	assert.Error(t, err)
	assert.False(t, p.Health().Healthy)
}

func TestPipeline_ConcurrentPredict(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPipeline(newTestBundle(t), metrics, false)

	const workers = 16
	var wg sync.WaitGroup
	labels := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pred, err := p.Predict(exampleInput())
			errs[i] = err
			if err == nil {
				labels[i] = pred.Label
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "150-200", labels[i])
	}
	assert.Equal(t, workers, metrics.Predictions())
	assert.Equal(t, int64(workers), p.Health().PredictionCount)
}
