package ml

import (
	"fmt"

	"pricerange/internal/encoding"
)

// ModelInputShapeError means the aligned feature vector does not match what
// the classifier was trained on. It points at a descriptor/model artifact
// mismatch, never at user input, and retrying cannot fix it.
type ModelInputShapeError struct {
	Expected int
	Got      int
	// Position and Column are set for an order mismatch.
	Position int
	Column   string
	Want     string
}

func (e *ModelInputShapeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("model input column %d is %q, model expects %q", e.Position, e.Column, e.Want)
	}
	return fmt.Sprintf("model expects %d features, got %d", e.Expected, e.Got)
}

// Outcome is a decoded classification.
type Outcome struct {
	ClassIndex    int
	Label         string
	Probabilities map[string]float64
}

// Engine couples the classifier with the label decoder.
type Engine struct {
	classifier Classifier
	labels     *encoding.LabelEncoder
}

// NewEngine checks that the classifier and the label decoder agree on the
// number of classes.
func NewEngine(c Classifier, labels *encoding.LabelEncoder) (*Engine, error) {
	if c == nil || labels == nil {
		return nil, fmt.Errorf("engine needs a classifier and a label encoder")
	}
	if c.NumClasses() != labels.NumClasses() {
		return nil, fmt.Errorf("classifier has %d classes, label encoder has %d", c.NumClasses(), labels.NumClasses())
	}
	return &Engine{classifier: c, labels: labels}, nil
}

// Classes returns the decoded labels in class-index order.
func (e *Engine) Classes() []string {
	out := make([]string, len(e.labels.Classes))
	copy(out, e.labels.Classes)
	return out
}

// CheckShape verifies the column count and, when the classifier knows its
// feature names, the column order.
func (e *Engine) CheckShape(columns []string) error {
	if want := e.classifier.NumFeatures(); len(columns) != want {
		return &ModelInputShapeError{Expected: want, Got: len(columns)}
	}
	namer, ok := e.classifier.(FeatureNamer)
	if !ok {
		return nil
	}
	names := namer.FeatureNames()
	if len(names) == 0 {
		return nil
	}
	for i, col := range columns {
		if NormalizeFeatureName(col) != names[i] {
			return &ModelInputShapeError{
				Expected: len(names),
				Got:      len(columns),
				Position: i,
				Column:   col,
				Want:     names[i],
			}
		}
	}
	return nil
}

// Predict classifies one aligned vector and decodes the winning class. Ties
// go to the lowest class index.
func (e *Engine) Predict(vec *encoding.FeatureVector) (*Outcome, error) {
	if err := e.CheckShape(vec.Columns); err != nil {
		return nil, err
	}
	proba, err := e.classifier.PredictProba(vec.Values)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(proba) != e.labels.NumClasses() {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d classes", len(proba), e.labels.NumClasses())
	}

	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	label, err := e.labels.Decode(best)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		ClassIndex:    best,
		Label:         label,
		Probabilities: make(map[string]float64, len(proba)),
	}
	for i, p := range proba {
		out.Probabilities[e.labels.Classes[i]] = p
	}
	return out, nil
}
