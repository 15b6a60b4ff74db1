package encoding

import (
	"fmt"
	"slices"

	"pricerange/internal/features"
	"pricerange/internal/schema"
)

// OrdinalColumns are the ordered-categorical columns, in the order the
// ordinal encoder was fitted on them.
var OrdinalColumns = []string{
	features.ColAgeGroup,
	schema.FieldHealthConcerns,
	schema.FieldConsumptionSize,
}

// OrdinalShift is added to every ordinal code: the encoder is zero-based but
// the model was trained on one-based ordinals.
const OrdinalShift = 1

// NonNumericColumnError means a final feature column still holds a category
// after encoding, i.e. the descriptor and the pipeline disagree.
type NonNumericColumnError struct {
	Column string
	Value  string
}

func (e *NonNumericColumnError) Error() string {
	return fmt.Sprintf("feature column %s is not numeric after encoding (value %q)", e.Column, e.Value)
}

// FeatureVector is one aligned model input: Values[i] belongs to Columns[i].
// Missing values are NaN.
type FeatureVector struct {
	Columns []string
	Values  []float64
	// Discarded lists encoded columns that are not model features.
	Discarded []string
}

func (v *FeatureVector) Len() int {
	return len(v.Values)
}

// Value returns the value of a named column.
func (v *FeatureVector) Value(col string) (float64, bool) {
	i := slices.Index(v.Columns, col)
	if i < 0 {
		return 0, false
	}
	return v.Values[i], true
}

// Transformer encodes an engineered row and aligns it to the trained feature
// list. It is immutable once built and safe for concurrent use.
type Transformer struct {
	info       *schema.EncodingInfo
	ordinal    *OrdinalEncoder
	categories map[string][]string
}

// NewTransformer binds the descriptor to the fitted ordinal encoder. One-hot
// categories come from the descriptor when it lists them, otherwise from the
// registry options sorted the way the training dummies were ordered.
func NewTransformer(info *schema.EncodingInfo, ordinal *OrdinalEncoder) (*Transformer, error) {
	if info == nil || ordinal == nil {
		return nil, fmt.Errorf("transformer needs both encoding info and ordinal encoder")
	}
	if ordinal.index == nil {
		if err := ordinal.prepare(); err != nil {
			return nil, err
		}
	}
	if !slices.Equal(ordinal.Columns, OrdinalColumns) {
		return nil, fmt.Errorf("ordinal encoder columns %v, want %v", ordinal.Columns, OrdinalColumns)
	}

	categories := make(map[string][]string, len(info.ColsToOnehot))
	for _, col := range info.ColsToOnehot {
		if slices.Contains(OrdinalColumns, col) {
			return nil, fmt.Errorf("column %s is both ordinal and one-hot encoded", col)
		}
		if cats, ok := info.OnehotCategories[col]; ok {
			categories[col] = slices.Clone(cats)
			continue
		}
		if opts := schema.Options(col); opts != nil {
			slices.Sort(opts)
			categories[col] = opts
		}
	}

	return &Transformer{info: info, ordinal: ordinal, categories: categories}, nil
}

// Features returns the final feature list the transformer aligns to.
func (t *Transformer) Features() []string {
	return slices.Clone(t.info.FinalFeatureList)
}

// Transform runs ordinal encoding, one-hot expansion and alignment on a copy
// of row.
func (t *Transformer) Transform(row *features.Row) (*FeatureVector, error) {
	out := row.Clone()
	if err := t.applyOrdinal(out); err != nil {
		return nil, err
	}
	if err := t.expandOneHot(out); err != nil {
		return nil, err
	}
	return t.align(out)
}

func (t *Transformer) applyOrdinal(row *features.Row) error {
	for _, col := range OrdinalColumns {
		code, err := t.ordinal.Encode(col, row.Cell(col))
		if err != nil {
			return err
		}
		row.Set(col, features.NumberCell(code+OrdinalShift))
	}
	return nil
}

// expandOneHot replaces each one-hot column with a {column}_{category}
// indicator per category except the first. A null or unknown value sets no
// indicator. Columns without a known category list emit only the indicator
// of the value present; alignment then zero-fills the rest.
func (t *Transformer) expandOneHot(row *features.Row) error {
	for _, col := range t.info.ColsToOnehot {
		cell, ok := row.Get(col)
		if !ok {
			return fmt.Errorf("one-hot column %s is not in the engineered record", col)
		}
		row.Drop(col)

		cats, known := t.categories[col]
		if !known {
			if !cell.IsNull() {
				row.Set(col+"_"+cell.String(), features.NumberCell(1))
			}
			continue
		}
		for _, cat := range cats[min(1, len(cats)):] {
			hit := 0.0
			if !cell.IsNull() && cell.String() == cat {
				hit = 1
			}
			row.Set(col+"_"+cat, features.NumberCell(hit))
		}
	}
	return nil
}

func (t *Transformer) align(row *features.Row) (*FeatureVector, error) {
	final := t.info.FinalFeatureList
	vec := &FeatureVector{
		Columns: slices.Clone(final),
		Values:  make([]float64, len(final)),
	}
	for i, col := range final {
		c, ok := row.Get(col)
		if !ok {
			continue
		}
		if c.Kind == features.Text {
			return nil, &NonNumericColumnError{Column: col, Value: c.Text}
		}
		vec.Values[i] = c.Float()
	}

	index := t.info.FeatureIndex()
	for _, col := range row.Columns() {
		if _, ok := index[col]; !ok {
			vec.Discarded = append(vec.Discarded, col)
		}
	}
	return vec, nil
}
