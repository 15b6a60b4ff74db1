// Package encoding holds the pre-fitted encoders shipped with the model and the
// final step of the feature pipeline: ordinal codes, drop-first one-hot
// dummies and alignment to the trained column list.
package encoding

import (
	"fmt"
	"math"

	"pricerange/internal/features"
)

// HandleUnknown values, named as in the fitted encoder's parameters.
const (
	HandleUnknownError       = "error"
	HandleUnknownEncodeValue = "use_encoded_value"
)

// UnknownCategoryError is returned when an ordinal column holds a value the
// encoder was not fitted on and the encoder is set to fail on unknowns.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("found unknown category %q in column %s during ordinal encoding", e.Value, e.Column)
}

// OrdinalEncoder is the serialized form of the fitted ordinal encoder. Codes
// are zero-based positions in Categories. A nil UnknownValue or
// EncodedMissingValue means NaN.
type OrdinalEncoder struct {
	Columns             []string   `json:"columns"`
	Categories          [][]string `json:"categories"`
	HandleUnknown       string     `json:"handle_unknown"`
	UnknownValue        *float64   `json:"unknown_value"`
	EncodedMissingValue *float64   `json:"encoded_missing_value"`

	index map[string]map[string]int
}

// prepare checks the parameters and builds the lookup tables. It must run
// once before the encoder is shared.
func (o *OrdinalEncoder) prepare() error {
	if len(o.Columns) == 0 {
		return fmt.Errorf("ordinal encoder has no columns")
	}
	if len(o.Columns) != len(o.Categories) {
		return fmt.Errorf("ordinal encoder has %d columns but %d category lists", len(o.Columns), len(o.Categories))
	}
	switch o.HandleUnknown {
	case "":
		o.HandleUnknown = HandleUnknownError
	case HandleUnknownError, HandleUnknownEncodeValue:
	default:
		return fmt.Errorf("ordinal encoder: unsupported handle_unknown %q", o.HandleUnknown)
	}

	o.index = make(map[string]map[string]int, len(o.Columns))
	for i, col := range o.Columns {
		if _, dup := o.index[col]; dup {
			return fmt.Errorf("ordinal encoder: duplicate column %s", col)
		}
		codes := make(map[string]int, len(o.Categories[i]))
		for code, cat := range o.Categories[i] {
			codes[cat] = code
		}
		o.index[col] = codes
	}
	return nil
}

// Encode returns the zero-based code of c in column col.
func (o *OrdinalEncoder) Encode(col string, c features.Cell) (float64, error) {
	codes, ok := o.index[col]
	if !ok {
		return 0, fmt.Errorf("ordinal encoder was not fitted on column %s", col)
	}
	if c.IsNull() {
		return optional(o.EncodedMissingValue), nil
	}
	if code, ok := codes[c.String()]; ok {
		return float64(code), nil
	}
	if o.HandleUnknown == HandleUnknownEncodeValue {
		return optional(o.UnknownValue), nil
	}
	return 0, &UnknownCategoryError{Column: col, Value: c.String()}
}

func optional(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
