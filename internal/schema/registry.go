// Package schema is the static registry of the survey inputs the price model was
// trained on: the fifteen raw field names in their canonical order, the discrete
// options each field accepts, the age range, and the training-time encoding
// descriptor that fixes the final feature columns.
package schema

import "slices"

// Raw input field names. The consumption frequency column keeps the
// "(weekly)" suffix it had in the training data.
const (
	FieldAge                  = "age"
	FieldGender               = "gender"
	FieldZone                 = "zone"
	FieldOccupation           = "occupation"
	FieldIncomeLevels         = "income_levels"
	FieldConsumeFrequency     = "consume_frequency(weekly)"
	FieldCurrentBrand         = "current_brand"
	FieldConsumptionSize      = "preferable_consumption_size"
	FieldAwareness            = "awareness_of_other_brands"
	FieldReasons              = "reasons_for_choosing_brands"
	FieldFlavor               = "flavor_preference"
	FieldPurchaseChannel      = "purchase_channel"
	FieldPackaging            = "packaging_preference"
	FieldHealthConcerns       = "health_concerns"
	FieldConsumptionSituation = "typical_consumption_situations"
)

// Age bounds offered by the input form, inclusive.
const (
	MinAge = 18
	MaxAge = 70
)

// Values referenced by business rules.
const (
	OccupationStudent = "Student"
	BrandEstablished  = "Established"
	ReasonPrice       = "Price"
	ReasonQuality     = "Quality"
)

var rawColumns = []string{
	FieldAge, FieldGender, FieldZone, FieldOccupation,
	FieldIncomeLevels, FieldConsumeFrequency, FieldCurrentBrand, FieldConsumptionSize,
	FieldAwareness, FieldReasons, FieldFlavor, FieldPurchaseChannel,
	FieldPackaging, FieldHealthConcerns, FieldConsumptionSituation,
}

// options lists every categorical field's accepted values in the order the
// input form presents them.
var options = map[string][]string{
	FieldGender:           {"M", "F"},
	FieldZone:             {"Urban", "Metro", "Rural", "Semi-Urban"},
	FieldOccupation:       {"Working Professional", "Student", "Entrepreneur", "Retired"},
	FieldIncomeLevels:     {"<10L", "10L - 15L", "16L - 25L", "26L - 35L", "> 35L", "Not Reported"},
	FieldConsumeFrequency: {"0-2 times", "3-4 times", "5-7 times"},
	FieldCurrentBrand:     {"Newcomer", "Established"},
	FieldConsumptionSize:  {"Small (250 ml)", "Medium (500 ml)", "Large (1 L)"},
	FieldAwareness:        {"0 to 1", "2 to 4", "above 4"},
	FieldReasons:          {"Price", "Quality", "Availability", "Brand Reputation"},
	FieldFlavor:           {"Traditional", "Exotic"},
	FieldPurchaseChannel:  {"Online", "Retail Store"},
	FieldPackaging:        {"Simple", "Premium", "Eco-Friendly"},
	FieldHealthConcerns: {
		"Low (Not very concerned)",
		"Medium (Moderately health-conscious)",
		"High (Very health-conscious)",
	},
	FieldConsumptionSituation: {
		"Active (eg. Sports, gym)",
		"Social (eg. Parties)",
		"Casual (eg. At home)",
	},
}

// RawColumns returns the canonical raw column order. The slice is a copy.
func RawColumns() []string {
	return slices.Clone(rawColumns)
}

// IsRawColumn reports whether name is one of the fifteen raw input fields.
func IsRawColumn(name string) bool {
	return slices.Contains(rawColumns, name)
}

// Options returns the accepted values for a categorical field in form order,
// or nil for age and for unknown fields.
func Options(field string) []string {
	return slices.Clone(options[field])
}

// Allowed reports whether value is one of field's accepted options.
func Allowed(field, value string) bool {
	return slices.Contains(options[field], value)
}

// AgeRange is the numeric domain of the age field.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FieldOptions pairs a categorical field with its accepted values.
type FieldOptions struct {
	Field   string   `json:"field"`
	Options []string `json:"options"`
}

// InputOptions is what a form needs to render the fifteen inputs.
type InputOptions struct {
	Age    AgeRange       `json:"age"`
	Fields []FieldOptions `json:"fields"`
}

// GetInputOptions returns the age range and the categorical options in the
// canonical column order.
func GetInputOptions() InputOptions {
	opts := InputOptions{Age: AgeRange{Min: MinAge, Max: MaxAge}}
	for _, col := range rawColumns {
		if col == FieldAge {
			continue
		}
		opts.Fields = append(opts.Fields, FieldOptions{Field: col, Options: Options(col)})
	}
	return opts
}

// ExampleRecord returns a complete, valid survey record.
func ExampleRecord() map[string]any {
	return map[string]any{
		FieldAge:                  30,
		FieldGender:               "M",
		FieldZone:                 "Metro",
		FieldOccupation:           "Entrepreneur",
		FieldIncomeLevels:         "16L - 25L",
		FieldConsumeFrequency:     "5-7 times",
		FieldCurrentBrand:         BrandEstablished,
		FieldConsumptionSize:      "Large (1 L)",
		FieldAwareness:            "2 to 4",
		FieldReasons:              ReasonQuality,
		FieldFlavor:               "Traditional",
		FieldPurchaseChannel:      "Online",
		FieldPackaging:            "Premium",
		FieldHealthConcerns:       "Medium (Moderately health-conscious)",
		FieldConsumptionSituation: "Active (eg. Sports, gym)",
	}
}
