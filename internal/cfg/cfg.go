package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pricerange/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ArtifactsDir     string
	ModelPath        string
	EncodingInfoPath string
	EncodersPath     string
	MetadataPath     string
	ServerPort       int
	MetricsPort      int
	DataPath         string
	StrictDomain     bool
	LogLevel         string
	LogFormat        string
	RequestTimeout   time.Duration
	// RateLimit is the /predict budget in requests per second, 0 for none.
	RateLimit      float64
	RateLimitBurst int
}

type ConfigFile struct {
	Artifacts struct {
		Dir          string `yaml:"dir"`
		Model        string `yaml:"model"`
		EncodingInfo string `yaml:"encodingInfo"`
		Encoders     string `yaml:"encoders"`
		Metadata     string `yaml:"metadata"`
	} `yaml:"artifacts"`

	Server struct {
		Port           int     `yaml:"port"`
		RequestTimeout string  `yaml:"requestTimeout"`
		StrictDomain   bool    `yaml:"strictDomain"`
		RateLimit      float64 `yaml:"rateLimit"`
		RateLimitBurst int     `yaml:"rateLimitBurst"`
	} `yaml:"server"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		LogLevel    string `yaml:"logLevel"`
		LogFormat   string `yaml:"logFormat"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout
	}

	artifactsDir := getEnvOrDefault(common.EnvArtifactsDir, orDefault(config.Artifacts.Dir, common.DefaultArtifactsDir))

	settings := Settings{
		ArtifactsDir:     artifactsDir,
		ModelPath:        getEnvOrDefault(common.EnvModelPath, config.Artifacts.Model),
		EncodingInfoPath: getEnvOrDefault(common.EnvEncodingInfoPath, config.Artifacts.EncodingInfo),
		EncodersPath:     getEnvOrDefault(common.EnvEncodersPath, config.Artifacts.Encoders),
		MetadataPath:     getEnvOrDefault(common.EnvMetadataPath, config.Artifacts.Metadata),
		ServerPort:       getIntFromEnvOrConfig(common.EnvServerPort, config.Server.Port, common.DefaultServerPort),
		MetricsPort:      getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		DataPath:         getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		StrictDomain:     getBoolFromEnvOrConfig(common.EnvStrictDomain, config.Server.StrictDomain),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:        getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
		RequestTimeout:   getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		RateLimit:        getFloatFromEnvOrConfig(common.EnvRateLimit, config.Server.RateLimit),
		RateLimitBurst:   getIntFromEnvOrConfig(common.EnvRateLimitBurst, config.Server.RateLimitBurst, common.DefaultRateLimitBurst),
	}
	settings.resolveArtifactPaths()

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ArtifactsDir:     getEnvOrDefault(common.EnvArtifactsDir, common.DefaultArtifactsDir),
		ModelPath:        os.Getenv(common.EnvModelPath),
		EncodingInfoPath: os.Getenv(common.EnvEncodingInfoPath),
		EncodersPath:     os.Getenv(common.EnvEncodersPath),
		MetadataPath:     os.Getenv(common.EnvMetadataPath),
		ServerPort:       getIntOrDefault(common.EnvServerPort, common.DefaultServerPort),
		MetricsPort:      getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		StrictDomain:     getBoolOrDefault(common.EnvStrictDomain, false),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:        getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		RequestTimeout:   getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
		RateLimit:        getFloatOrDefault(common.EnvRateLimit, 0),
		RateLimitBurst:   getIntOrDefault(common.EnvRateLimitBurst, common.DefaultRateLimitBurst),
	}
	settings.resolveArtifactPaths()

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// resolveArtifactPaths fills every artifact path left empty with its default
// file name inside ArtifactsDir.
func (s *Settings) resolveArtifactPaths() {
	if s.ModelPath == "" {
		s.ModelPath = filepath.Join(s.ArtifactsDir, common.DefaultModelFile)
	}
	if s.EncodingInfoPath == "" {
		s.EncodingInfoPath = filepath.Join(s.ArtifactsDir, common.DefaultEncodingInfoFile)
	}
	if s.EncodersPath == "" {
		s.EncodersPath = filepath.Join(s.ArtifactsDir, common.DefaultEncodersFile)
	}
	if s.MetadataPath == "" {
		s.MetadataPath = filepath.Join(s.ArtifactsDir, common.DefaultMetadataFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate artifact locations
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.EncodingInfoPath == "" {
		return fmt.Errorf("encoding info path cannot be empty")
	}
	if settings.EncodersPath == "" {
		return fmt.Errorf("encoders path cannot be empty")
	}

	// Validate ports
	if settings.ServerPort < common.MinPort || settings.ServerPort > common.MaxPort {
		return fmt.Errorf("server port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.ServerPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.ServerPort == settings.MetricsPort {
		return fmt.Errorf("server and metrics ports must differ, both are %d", settings.ServerPort)
	}

	// Validate time durations
	if settings.RequestTimeout < common.MinRequestTimeout || settings.RequestTimeout > common.MaxRequestTimeout {
		return fmt.Errorf("request timeout must be between %v and %v, got %v",
			common.MinRequestTimeout, common.MaxRequestTimeout, settings.RequestTimeout)
	}

	// Validate rate limiting
	if settings.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %f", settings.RateLimit)
	}
	if settings.RateLimit > 0 && settings.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got %d", settings.RateLimitBurst)
	}

	// Validate logging
	switch strings.ToLower(settings.LogFormat) {
	case common.LogFormatJSON, common.LogFormatConsole:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", common.LogFormatJSON, common.LogFormatConsole, settings.LogFormat)
	}
	if settings.LogLevel == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	return nil
}
