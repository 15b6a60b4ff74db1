package common

import "time"

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvDotEnvFile       = "DOTENV_FILE"
	EnvArtifactsDir     = "ARTIFACTS_DIR"
	EnvModelPath        = "MODEL_PATH"
	EnvEncodingInfoPath = "ENCODING_INFO_PATH"
	EnvEncodersPath     = "ENCODERS_PATH"
	EnvMetadataPath     = "MODEL_METADATA_PATH"
	EnvServerPort       = "SERVER_PORT"
	EnvMetricsPort      = "METRICS_PORT"
	EnvDataPath         = "DATA_PATH"
	EnvStrictDomain     = "STRICT_DOMAIN"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvRateLimit        = "RATE_LIMIT"
	EnvRateLimitBurst   = "RATE_LIMIT_BURST"
)

// Configuration defaults
const (
	DefaultDotEnvFile     = ".env"
	DefaultArtifactsDir   = "artifacts"
	DefaultServerPort     = 8000
	DefaultMetricsPort    = 9090
	DefaultLogLevel       = "info"
	DefaultLogFormat      = LogFormatJSON
	DefaultRequestTimeout = 10 * time.Second
	DefaultRateLimitBurst = 20
)

// Artifact file names inside the artifacts directory
const (
	DefaultModelFile        = "lightgbm_model.txt"
	DefaultEncodingInfoFile = "encoding_info.json"
	DefaultEncodersFile     = "encoders.json"
	DefaultMetadataFile     = "model_metadata.json"
)

// Log output formats
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Validation constants
const (
	MinPort           = 1024
	MaxPort           = 65535
	MinRequestTimeout = 100 * time.Millisecond
	MaxRequestTimeout = 5 * time.Minute
)
