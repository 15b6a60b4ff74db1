package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pricerange/internal/client"
	"pricerange/internal/common"
	"pricerange/internal/features"
	"pricerange/internal/ml"
	"pricerange/internal/schema"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// result is what the CLI prints for one prediction.
type result struct {
	RequestID     string                   `json:"request_id,omitempty"`
	Label         string                   `json:"label"`
	Probabilities map[string]float64       `json:"probabilities"`
	Engineered    map[string]features.Cell `json:"engineered,omitempty"`
}

func main() {
	// Parse command line arguments
	var (
		inputPath    = flag.String("input", "-", "Path to a JSON record, - for stdin")
		artifactsDir = flag.String("artifacts", common.DefaultArtifactsDir, "Directory holding the model artifacts")
		serverURL    = flag.String("server", "", "Predict through a running server instead of loading artifacts")
		timeout      = flag.Duration("timeout", common.DefaultRequestTimeout, "Request timeout for -server")
		strict       = flag.Bool("strict", false, "Reject values outside the input domain")
		example      = flag.Bool("example", false, "Print an example record and exit")
		showFeatures = flag.Bool("features", false, "Include the derived features in the output (local only)")
		logLevel     = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *example {
		writeJSON(schema.ExampleRecord())
		return
	}

	input, err := readInput(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read input record")
	}

	var out *result
	if *serverURL != "" {
		out, err = predictRemote(*serverURL, *timeout, input)
	} else {
		out, err = predictLocal(*artifactsDir, *strict, *showFeatures, input)
	}
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		os.Exit(1)
	}
	writeJSON(out)
}

func readInput(path string) (features.RawInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var input features.RawInput
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&input); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if input == nil {
		return nil, fmt.Errorf("record must be a JSON object")
	}
	return input, nil
}

func predictLocal(dir string, strict, withFeatures bool, input features.RawInput) (*result, error) {
	bundle, err := ml.LoadBundle(ml.ArtifactPathsIn(dir))
	if err != nil {
		return nil, err
	}
	pred, err := ml.NewPipeline(bundle, nil, strict).Predict(input)
	if err != nil {
		return nil, err
	}

	out := &result{Label: pred.Label, Probabilities: pred.Probabilities}
	if withFeatures {
		out.Engineered = pred.Engineered.Map()
	}
	return out, nil
}

func predictRemote(base string, timeout time.Duration, input features.RawInput) (*result, error) {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	resp, err := client.New(base, timeout).Predict(input, "")
	if err != nil {
		return nil, err
	}
	return &result{
		RequestID:     resp.RequestID,
		Label:         resp.Label,
		Probabilities: resp.Probabilities,
	}, nil
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}
}
