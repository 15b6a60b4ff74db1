package ml

import (
	"errors"
	"path/filepath"
	"testing"

	"pricerange/internal/encoding"
	"pricerange/internal/features"
	"pricerange/internal/schema"

	"github.com/stretchr/testify/require"
)

// stubClassifier returns fixed probabilities and records the last input.
type stubClassifier struct {
	features int
	names    []string
	proba    []float64
	err      error
}

func (s *stubClassifier) NumFeatures() int { return s.features }
func (s *stubClassifier) NumClasses() int  { return len(s.proba) }

func (s *stubClassifier) PredictProba(vals []float64) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(vals) != s.features {
		return nil, errors.New("stub: wrong input width")
	}
	out := make([]float64, len(s.proba))
	copy(out, s.proba)
	return out, nil
}

// namedStub adds training column names to a stub.
type namedStub struct {
	*stubClassifier
}

func (n namedStub) FeatureNames() []string { return n.names }

func loadTestArtifacts(t *testing.T) (*schema.EncodingInfo, *encoding.Encoders) {
	t.Helper()
	info, err := schema.LoadEncodingInfo(filepath.Join("testdata", "encoding_info.json"))
	require.NoError(t, err)
	enc, err := encoding.LoadEncoders(filepath.Join("testdata", "encoders.json"))
	require.NoError(t, err)
	return info, enc
}

// newTestBundle builds a bundle over the fixture artifacts whose classifier
// always favours "150-200".
func newTestBundle(t *testing.T) *Bundle {
	t.Helper()
	info, enc := loadTestArtifacts(t)

	names := make([]string, len(info.FinalFeatureList))
	for i, col := range info.FinalFeatureList {
		names[i] = NormalizeFeatureName(col)
	}
	c := namedStub{&stubClassifier{
		features: len(names),
		names:    names,
		proba:    []float64{0.1, 0.6, 0.2, 0.1},
	}}

	b, err := NewBundle(info, enc, c, &ModelMetadata{Version: "test"})
	require.NoError(t, err)
	return b
}

func exampleInput() features.RawInput {
	return features.RawInput(schema.ExampleRecord())
}
