package ml

import (
	"errors"
	"testing"

	"pricerange/internal/encoding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_ClassCountMismatch(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b", "c"}}

	_, err := NewEngine(&stubClassifier{features: 2, proba: []float64{0.5, 0.5}}, labels)
	assert.Error(t, err)

	_, err = NewEngine(nil, labels)
	assert.Error(t, err)
}

func TestEngine_Predict(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b", "c"}}
	e, err := NewEngine(&stubClassifier{features: 2, proba: []float64{0.2, 0.5, 0.3}}, labels)
	require.NoError(t, err)

	out, err := e.Predict(&encoding.FeatureVector{Columns: []string{"x", "y"}, Values: []float64{1, 2}})
	require.NoError(t, err)

	assert.Equal(t, 1, out.ClassIndex)
	assert.Equal(t, "b", out.Label)
	assert.Equal(t, map[string]float64{"a": 0.2, "b": 0.5, "c": 0.3}, out.Probabilities)
}

func TestEngine_PredictTieGoesToLowestIndex(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b", "c"}}
	e, err := NewEngine(&stubClassifier{features: 1, proba: []float64{0.2, 0.4, 0.4}}, labels)
	require.NoError(t, err)

	out, err := e.Predict(&encoding.FeatureVector{Columns: []string{"x"}, Values: []float64{0}})
	require.NoError(t, err)
	assert.Equal(t, "b", out.Label)
}

func TestEngine_ShapeErrors(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b"}}
	stub := &stubClassifier{features: 2, names: []string{"x", "y_z"}, proba: []float64{0.5, 0.5}}

	t.Run("count", func(t *testing.T) {
		e, err := NewEngine(stub, labels)
		require.NoError(t, err)

		_, err = e.Predict(&encoding.FeatureVector{Columns: []string{"x"}, Values: []float64{1}})
		var shape *ModelInputShapeError
		require.True(t, errors.As(err, &shape))
		assert.Equal(t, 2, shape.Expected)
		assert.Equal(t, 1, shape.Got)
		assert.Empty(t, shape.Column)
	})

	t.Run("order", func(t *testing.T) {
		e, err := NewEngine(namedStub{stub}, labels)
		require.NoError(t, err)

		err = e.CheckShape([]string{"y z", "x"})
		var shape *ModelInputShapeError
		require.True(t, errors.As(err, &shape))
		assert.Equal(t, 0, shape.Position)
		assert.Equal(t, "y z", shape.Column)
		assert.Equal(t, "x", shape.Want)
	})

	t.Run("names normalised", func(t *testing.T) {
		e, err := NewEngine(namedStub{stub}, labels)
		require.NoError(t, err)
		assert.NoError(t, e.CheckShape([]string{"x", "y z"}))
	})
}

func TestEngine_ClassifierError(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b"}}
	boom := errors.New("boom")
	e, err := NewEngine(&stubClassifier{features: 1, proba: []float64{0.5, 0.5}, err: boom}, labels)
	require.NoError(t, err)

	_, err = e.Predict(&encoding.FeatureVector{Columns: []string{"x"}, Values: []float64{1}})
	assert.ErrorIs(t, err, boom)
}

func TestEngine_ClassesIsACopy(t *testing.T) {
	labels := &encoding.LabelEncoder{Classes: []string{"a", "b"}}
	e, err := NewEngine(&stubClassifier{features: 1, proba: []float64{0.5, 0.5}}, labels)
	require.NoError(t, err)

	classes := e.Classes()
	classes[0] = "z"
	assert.Equal(t, []string{"a", "b"}, e.Classes())
}
