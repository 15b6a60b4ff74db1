package schema

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// UnknownValueError reports a raw field whose value is outside the registry's
// domain for that field.
type UnknownValueError struct {
	Field  string
	Value  any
	Reason string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("value %v is not allowed for %s: %s", e.Value, e.Field, e.Reason)
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *gojsonschema.Schema
	recordSchemaErr  error
)

// recordSchemaDocument describes a raw record: age must be a number within
// the form's range and every categorical field one of its options. Nulls and
// absent fields are allowed; the row builder turns them into null cells.
func recordSchemaDocument() map[string]any {
	props := map[string]any{
		FieldAge: map[string]any{
			"type":    []string{"number", "null"},
			"minimum": MinAge,
			"maximum": MaxAge,
		},
	}
	for field, values := range options {
		enum := make([]any, 0, len(values)+1)
		for _, v := range values {
			enum = append(enum, v)
		}
		enum = append(enum, nil)
		props[field] = map[string]any{"enum": enum}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func compiledRecordSchema() (*gojsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(recordSchemaDocument()))
	})
	return recordSchema, recordSchemaErr
}

// CheckDomain lists every field of input whose value falls outside the
// registry. It never rejects on its own; callers decide whether an
// out-of-domain value is fatal. Fields not in the registry are ignored.
func CheckDomain(input map[string]any) ([]*UnknownValueError, error) {
	if input == nil {
		input = map[string]any{}
	}
	s, err := compiledRecordSchema()
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate record: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	seen := make(map[string]bool)
	var issues []*UnknownValueError
	for _, re := range result.Errors() {
		field := re.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		issues = append(issues, &UnknownValueError{
			Field:  field,
			Value:  input[field],
			Reason: re.Description(),
		})
	}
	return issues, nil
}
