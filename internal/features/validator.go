package features

import (
	"fmt"
	"strconv"

	"pricerange/internal/schema"
)

// studentAgeLimit is the oldest age at which "Student" is accepted.
const studentAgeLimit = 55

// Stage identifies where an invalid combination was caught.
type Stage string

const (
	StageValidation Stage = "validation"
	StageDerivation Stage = "derivation"
)

// InvalidCombinationError is returned for a respondent older than 55 who
// reports being a student. At StageDerivation it means the validator was
// bypassed and the row reached feature derivation anyway.
type InvalidCombinationError struct {
	Age        float64
	Occupation string
	Stage      Stage
}

func (e *InvalidCombinationError) Error() string {
	return fmt.Sprintf("occupation '%s' not allowed for age %s",
		e.Occupation, strconv.FormatFloat(e.Age, 'f', -1, 64))
}

// Validate rejects impossible age/occupation combinations. Missing age or
// occupation passes, as does every other combination; nothing is corrected.
func Validate(input RawInput) error {
	age := cellOf(input[schema.FieldAge])
	occupation := cellOf(input[schema.FieldOccupation])
	if age.Kind != Number || occupation.IsNull() {
		return nil
	}
	if age.Num > studentAgeLimit && occupation.Is(schema.OccupationStudent) {
		return &InvalidCombinationError{
			Age:        age.Num,
			Occupation: occupation.Text,
			Stage:      StageValidation,
		}
	}
	return nil
}
