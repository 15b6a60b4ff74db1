package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pricerange/internal/common"
	"pricerange/internal/encoding"
	"pricerange/internal/schema"

	"github.com/rs/zerolog/log"
)

// ArtifactPaths locates the files a Bundle is loaded from.
type ArtifactPaths struct {
	ModelPath        string
	EncodingInfoPath string
	EncodersPath     string
	// MetadataPath is optional.
	MetadataPath string
}

// ArtifactPathsIn returns the default file layout under dir.
func ArtifactPathsIn(dir string) ArtifactPaths {
	return ArtifactPaths{
		ModelPath:        filepath.Join(dir, common.DefaultModelFile),
		EncodingInfoPath: filepath.Join(dir, common.DefaultEncodingInfoFile),
		EncodersPath:     filepath.Join(dir, common.DefaultEncodersFile),
		MetadataPath:     filepath.Join(dir, common.DefaultMetadataFile),
	}
}

// ModelMetadata describes the loaded model.
type ModelMetadata struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Features  int       `json:"features"`
	Classes   []string  `json:"classes"`
	Notes     string    `json:"notes,omitempty"`
}

// Bundle is the process-wide set of pre-fitted artifacts. It is built once at
// startup and only read afterwards, so prediction calls share it without
// locking.
type Bundle struct {
	Info        *schema.EncodingInfo
	Transformer *encoding.Transformer
	Engine      *Engine
	Metadata    *ModelMetadata
	// ModelModTime is the model file's modification time, zero if unknown.
	ModelModTime time.Time
}

// LoadBundle reads every artifact and cross-checks them. A bundle whose
// descriptor does not match the model is rejected here rather than on the
// first request.
func LoadBundle(paths ArtifactPaths) (*Bundle, error) {
	info, err := schema.LoadEncodingInfo(paths.EncodingInfoPath)
	if err != nil {
		return nil, err
	}
	enc, err := encoding.LoadEncoders(paths.EncodersPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadLightGBM(paths.ModelPath)
	if err != nil {
		return nil, err
	}

	md, err := loadModelMetadata(paths.MetadataPath)
	if err != nil {
		log.Warn().Err(err).Str("metadata_path", paths.MetadataPath).Msg("failed to load model metadata, using defaults")
		md = &ModelMetadata{Version: "unknown"}
	}

	b, err := NewBundle(info, enc, model, md)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(paths.ModelPath); err == nil {
		b.ModelModTime = st.ModTime()
	}

	log.Info().
		Str("model_path", paths.ModelPath).
		Str("version", b.Metadata.Version).
		Int("features", len(info.FinalFeatureList)).
		Strs("classes", b.Engine.Classes()).
		Msg("model artifacts loaded")
	return b, nil
}

// NewBundle assembles a bundle from already loaded artifacts.
func NewBundle(info *schema.EncodingInfo, enc *encoding.Encoders, c Classifier, md *ModelMetadata) (*Bundle, error) {
	if enc == nil {
		return nil, fmt.Errorf("bundle needs encoders")
	}
	transformer, err := encoding.NewTransformer(info, enc.Ordinal)
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}
	engine, err := NewEngine(c, enc.Label)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	if err := engine.CheckShape(info.FinalFeatureList); err != nil {
		return nil, fmt.Errorf("descriptor does not match model: %w", err)
	}

	if md == nil {
		md = &ModelMetadata{Version: "unknown"}
	}
	if md.Features == 0 {
		md.Features = len(info.FinalFeatureList)
	}
	if len(md.Classes) == 0 {
		md.Classes = engine.Classes()
	}

	return &Bundle{
		Info:        info,
		Transformer: transformer,
		Engine:      engine,
		Metadata:    md,
	}, nil
}

// ModelAge is how long ago the model file was written, zero if unknown.
func (b *Bundle) ModelAge() time.Duration {
	if b.ModelModTime.IsZero() {
		return 0
	}
	return time.Since(b.ModelModTime)
}

func loadModelMetadata(path string) (*ModelMetadata, error) {
	if path == "" {
		return nil, fmt.Errorf("no metadata path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md ModelMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	if md.Version == "" {
		md.Version = "unknown"
	}
	return &md, nil
}
