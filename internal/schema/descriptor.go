package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// descriptorSchema is the shape encoding_info.json must have.
const descriptorSchema = `{
	"type": "object",
	"required": ["final_feature_list", "cols_to_onehot"],
	"properties": {
		"final_feature_list": {
			"type": "array",
			"minItems": 1,
			"uniqueItems": true,
			"items": {"type": "string", "minLength": 1}
		},
		"cols_to_onehot": {
			"type": "array",
			"uniqueItems": true,
			"items": {"type": "string", "minLength": 1}
		},
		"onehot_categories": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"minItems": 1,
				"items": {"type": "string"}
			}
		}
	}
}`

// EncodingInfo is the training-time descriptor of the model's feature layout.
type EncodingInfo struct {
	// FinalFeatureList is the exact column order the classifier was fitted on.
	FinalFeatureList []string `json:"final_feature_list"`
	// ColsToOnehot names the nominal columns expanded with drop-first dummies.
	ColsToOnehot []string `json:"cols_to_onehot"`
	// OnehotCategories optionally pins the category order of a one-hot
	// column; the first category is the dropped reference.
	OnehotCategories map[string][]string `json:"onehot_categories,omitempty"`
}

// LoadEncodingInfo reads and validates the descriptor at path.
func LoadEncodingInfo(path string) (*EncodingInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoding info %s: %w", path, err)
	}
	return ParseEncodingInfo(data)
}

// ParseEncodingInfo validates raw descriptor JSON and decodes it.
func ParseEncodingInfo(data []byte) (*EncodingInfo, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(descriptorSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("encoding info is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return nil, fmt.Errorf("encoding info validation failed: %s", strings.Join(msgs, "; "))
	}

	var info EncodingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse encoding info: %w", err)
	}
	return &info, nil
}

// FeatureIndex returns the position of every final feature column.
func (e *EncodingInfo) FeatureIndex() map[string]int {
	idx := make(map[string]int, len(e.FinalFeatureList))
	for i, col := range e.FinalFeatureList {
		idx[col] = i
	}
	return idx
}
