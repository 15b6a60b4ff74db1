package ml

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/dmitryikh/leaves"
)

// Classifier is the pre-fitted model. Implementations must be safe for
// concurrent use.
type Classifier interface {
	// NumFeatures is the input width the model was trained with.
	NumFeatures() int
	// NumClasses is the number of target classes.
	NumClasses() int
	// PredictProba returns one probability per class.
	PredictProba(features []float64) ([]float64, error)
}

// FeatureNamer is implemented by classifiers that know their training column
// names, enabling an order check on top of the width check.
type FeatureNamer interface {
	FeatureNames() []string
}

// LightGBM serves a LightGBM text model.
type LightGBM struct {
	path         string
	ensemble     *leaves.Ensemble
	featureNames []string
}

// LoadLightGBM reads a LightGBM model saved in text format. The model's output
// transformation is loaded too, so predictions are class probabilities.
func LoadLightGBM(path string) (*LightGBM, error) {
	ensemble, err := leaves.LGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load lightgbm model %s: %w", path, err)
	}
	names, err := readFeatureNames(path)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 && len(names) != ensemble.NFeatures() {
		return nil, fmt.Errorf("lightgbm model %s lists %d feature names for %d features", path, len(names), ensemble.NFeatures())
	}
	return &LightGBM{path: path, ensemble: ensemble, featureNames: names}, nil
}

func (m *LightGBM) NumFeatures() int {
	return m.ensemble.NFeatures()
}

func (m *LightGBM) NumClasses() int {
	if n := m.ensemble.NOutputGroups(); n > 1 {
		return n
	}
	return 2
}

func (m *LightGBM) FeatureNames() []string {
	return m.featureNames
}

func (m *LightGBM) PredictProba(features []float64) ([]float64, error) {
	out := make([]float64, m.ensemble.NOutputGroups())
	if err := m.ensemble.Predict(features, 0, out); err != nil {
		return nil, fmt.Errorf("lightgbm predict: %w", err)
	}
	if len(out) == 1 {
		return []float64{1 - out[0], out[0]}, nil
	}
	return out, nil
}

// readFeatureNames picks the feature_names line out of a text model header.
func readFeatureNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()
	return scanFeatureNames(bufio.NewScanner(f))
}

func scanFeatureNames(sc *bufio.Scanner) ([]string, error) {
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "Tree=") {
			break
		}
		if names, ok := strings.CutPrefix(line, "feature_names="); ok {
			return strings.Fields(names), nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model header: %w", err)
	}
	return nil, nil
}

// NormalizeFeatureName mirrors how LightGBM stores column names: every
// whitespace character becomes an underscore.
func NormalizeFeatureName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}
