package encoding

import (
	"encoding/json"
	"fmt"
	"os"
)

// Encoders is the content of the encoder artifact file.
type Encoders struct {
	Ordinal *OrdinalEncoder `json:"ordinal_encoder"`
	Label   *LabelEncoder   `json:"label_encoder"`
}

// LoadEncoders reads the encoder artifact at path.
func LoadEncoders(path string) (*Encoders, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoders %s: %w", path, err)
	}
	return ParseEncoders(data)
}

// ParseEncoders decodes and checks the encoder artifact.
func ParseEncoders(data []byte) (*Encoders, error) {
	var enc Encoders
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("failed to parse encoders: %w", err)
	}
	if enc.Ordinal == nil {
		return nil, fmt.Errorf("encoders: ordinal_encoder is missing")
	}
	if enc.Label == nil || len(enc.Label.Classes) == 0 {
		return nil, fmt.Errorf("encoders: label_encoder has no classes")
	}
	if err := enc.Ordinal.prepare(); err != nil {
		return nil, err
	}
	return &enc, nil
}
