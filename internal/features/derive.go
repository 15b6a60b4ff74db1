package features

import (
	"math"

	"pricerange/internal/schema"
)

// Engineered column names, as they were named when the model was trained.
const (
	ColAgeGroup         = "age_group"
	ColFrequencyEncoded = "consume_frequency_weekly_encoded"
	ColAwarenessEncoded = "awareness_of_other_brands_encoded"
	ColCfAbScore        = "cf_ab_score"
	ColZoneEncoded      = "zone_encoded"
	ColIncomeEncoded    = "income_levels_encoded"
	ColZasScore         = "zas_score"
	ColBrandSwitch      = "bsi"
	ColLoyaltyScore     = "loyalty_score"
)

// AgeGroupSeniorLabel is the oldest age bucket.
const AgeGroupSeniorLabel = "56-70"

const loyaltyUpperBound = 2.0

// ageBins are right-closed upper edges; the first bin also includes its
// lower edge, so the buckets are [18,25] (25,35] (35,45] (45,55] (55,70].
var ageBins = []struct {
	upper float64
	label string
}{
	{25, "18-25"},
	{35, "26-35"},
	{45, "36-45"},
	{55, "46-55"},
	{70, AgeGroupSeniorLabel},
}

var (
	frequencyCodes = map[string]float64{
		"0-2 times": 1,
		"3-4 times": 2,
		"5-7 times": 3,
	}
	awarenessCodes = map[string]float64{
		"0 to 1":  1,
		"2 to 4":  2,
		"above 4": 3,
	}
	zoneCodes = map[string]float64{
		"Rural":      1,
		"Semi-Urban": 2,
		"Urban":      3,
		"Metro":      4,
	}
	incomeCodes = map[string]float64{
		"Not Reported": 0,
		"<10L":         1,
		"10L - 15L":    2,
		"16L - 25L":    3,
		"26L - 35L":    4,
		"> 35L":        5,
	}
)

// AgeGroup buckets age. It returns false for ages outside [18,70] and NaN.
func AgeGroup(age float64) (string, bool) {
	if math.IsNaN(age) || age < schema.MinAge {
		return "", false
	}
	for _, b := range ageBins {
		if age <= b.upper {
			return b.label, true
		}
	}
	return "", false
}

// AgeGroupLabels returns the bucket labels in ascending order.
func AgeGroupLabels() []string {
	labels := make([]string, len(ageBins))
	for i, b := range ageBins {
		labels[i] = b.label
	}
	return labels
}

// Round2 rounds half to even at two decimals, matching numpy's round.
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// lookup maps a categorical cell through codes. Values the map does not know,
// and null cells, come back as null.
func lookup(c Cell, codes map[string]float64) Cell {
	if c.Kind != Text {
		return NullCell()
	}
	v, ok := codes[c.Text]
	if !ok {
		return NullCell()
	}
	return NumberCell(v)
}

// numeric applies f when every argument is a number and yields null otherwise.
func numeric(f func(...float64) float64, cells ...Cell) Cell {
	vals := make([]float64, len(cells))
	for i, c := range cells {
		if c.Kind != Number {
			return NullCell()
		}
		vals[i] = c.Num
	}
	return NumberCell(f(vals...))
}

// Derive computes the engineered record from a built row. The input row is
// left untouched. Each step consumes the previous one's columns and drops the
// raw columns it supersedes:
//
//  1. age -> age_group
//  2. frequency and awareness codes, cf_ab_score
//  3. zone and income codes, zas_score
//  4. bsi, the brand-switch indicator
//  5. loyalty_score
//  6. the senior-student invariant
//
// Values missing from the code maps become null cells rather than errors.
// A row that reaches step 6 as a senior student is not returned; the error is
// an *InvalidCombinationError with StageDerivation.
func Derive(in *Row) (*Row, error) {
	row := in.Clone()

	age := row.Cell(schema.FieldAge)
	group := NullCell()
	if age.Kind == Number {
		if label, ok := AgeGroup(age.Num); ok {
			group = TextCell(label)
		}
	}
	row.Set(ColAgeGroup, group)
	row.Drop(schema.FieldAge)

	freq := lookup(row.Cell(schema.FieldConsumeFrequency), frequencyCodes)
	awareness := lookup(row.Cell(schema.FieldAwareness), awarenessCodes)
	row.Set(ColFrequencyEncoded, freq)
	row.Set(ColAwarenessEncoded, awareness)
	row.Set(ColCfAbScore, numeric(func(v ...float64) float64 {
		return Round2(v[0] / (v[1] + v[0]))
	}, freq, awareness))
	row.Drop(schema.FieldConsumeFrequency, schema.FieldAwareness)

	zone := lookup(row.Cell(schema.FieldZone), zoneCodes)
	income := lookup(row.Cell(schema.FieldIncomeLevels), incomeCodes)
	row.Set(ColZoneEncoded, zone)
	row.Set(ColIncomeEncoded, income)
	row.Set(ColZasScore, numeric(func(v ...float64) float64 {
		return v[0] * v[1]
	}, zone, income))
	row.Drop(schema.FieldZone, schema.FieldIncomeLevels)

	row.Set(ColBrandSwitch, NumberCell(brandSwitch(row)))

	row.Set(ColLoyaltyScore, numeric(func(v ...float64) float64 {
		return Round2(math.Min(v[0]/(v[1]+1), loyaltyUpperBound))
	}, freq, awareness))

	if group.Is(AgeGroupSeniorLabel) && row.Cell(schema.FieldOccupation).Is(schema.OccupationStudent) {
		return nil, &InvalidCombinationError{
			Age:        age.Num,
			Occupation: schema.OccupationStudent,
			Stage:      StageDerivation,
		}
	}

	return row, nil
}

// brandSwitch is 1 for a respondent not on an established brand who picks
// brands on price or quality. A blank current brand counts as not
// established; a blank reason never matches.
func brandSwitch(row *Row) float64 {
	established := row.Cell(schema.FieldCurrentBrand).Is(schema.BrandEstablished)
	reason := row.Cell(schema.FieldReasons)
	if !established && (reason.Is(schema.ReasonPrice) || reason.Is(schema.ReasonQuality)) {
		return 1
	}
	return 0
}
