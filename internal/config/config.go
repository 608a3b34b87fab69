package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default watch settings, matching the cadence judges are usually given
const (
	// DefaultTimeoutSeconds bounds how long to wait for the judge's artifact
	DefaultTimeoutSeconds = 600

	// DefaultPollIntervalSeconds is the check cadence while waiting
	DefaultPollIntervalSeconds = 2.0

	// DefaultSettleMillis is the pause between first seeing the artifact and reading it
	DefaultSettleMillis = 1000
)

// Default output settings
const (
	DefaultOutputDirectory = "reports"
	DefaultHistoryPath     = ".fixeval/history.db"
	DefaultPublishPrefix   = "reports/"
	DefaultPublishRegion   = "us-east-1"
)

// Config represents the main configuration structure
type Config struct {
	// Metrics configures the active metric schema
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// Watch configures how the results artifact is awaited
	Watch WatchConfig `json:"watch" mapstructure:"watch" yaml:"watch"`

	// Output holds report output configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Logging holds log level and format
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`

	// History configures the local run history database
	History HistoryConfig `json:"history" mapstructure:"history" yaml:"history"`

	// Publish configures upload of rendered reports to object storage
	Publish PublishConfig `json:"publish" mapstructure:"publish" yaml:"publish"`

	// Telemetry configures tracing
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry" yaml:"telemetry"`
}

// MetricsConfig overrides the built-in metric catalog
type MetricsConfig struct {
	// Weights maps metric name to weight. Unlisted active metrics keep their default weight.
	Weights map[string]float64 `json:"weights,omitempty" mapstructure:"weights" yaml:"weights,omitempty"`

	// Active selects the metrics that must be scored. Empty means the default set.
	Active []string `json:"active,omitempty" mapstructure:"active" yaml:"active,omitempty"`

	// ScoreMin and ScoreMax set the score range for every metric
	ScoreMin float64 `json:"score_min" mapstructure:"score_min" yaml:"score_min"`
	ScoreMax float64 `json:"score_max" mapstructure:"score_max" yaml:"score_max"`
}

// WatchConfig holds results watcher settings
type WatchConfig struct {
	TimeoutSeconds      int     `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gt=0"`
	PollIntervalSeconds float64 `json:"poll_interval_seconds" mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds" validate:"gt=0"`
	SettleMillis        int     `json:"settle_millis" mapstructure:"settle_millis" yaml:"settle_millis" validate:"gte=0"`

	// UseFSNotify wakes the poll loop on file system events
	UseFSNotify bool `json:"use_fsnotify" mapstructure:"use_fsnotify" yaml:"use_fsnotify"`
}

// Timeout returns the timeout as a duration
func (w WatchConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds * float64(time.Second))
}

// SettleDelay returns the settle delay as a duration
func (w WatchConfig) SettleDelay() time.Duration {
	return time.Duration(w.SettleMillis) * time.Millisecond
}

// OutputConfig holds configuration for report output
type OutputConfig struct {
	// Directory is where reports are written
	Directory string `json:"directory" mapstructure:"directory" yaml:"directory"`

	// Formats lists the formats rendered by default: json, html, markdown, text
	Formats []string `json:"formats" mapstructure:"formats" yaml:"formats"`

	// IgnorePaths are gitignore-style patterns hidden from implementation differences
	IgnorePaths []string `json:"ignore_paths,omitempty" mapstructure:"ignore_paths" yaml:"ignore_paths,omitempty"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// HistoryConfig holds run history settings
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Path    string `json:"path" mapstructure:"path" yaml:"path" validate:"required_if=Enabled true"`
}

// PublishConfig holds S3-compatible upload settings. Credentials come from the
// standard AWS environment and are never stored here.
type PublishConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Bucket   string `json:"bucket" mapstructure:"bucket" yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix   string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`
	Region   string `json:"region" mapstructure:"region" yaml:"region"`
	Endpoint string `json:"endpoint,omitempty" mapstructure:"endpoint" yaml:"endpoint,omitempty" validate:"omitempty,url"`
}

// TelemetryConfig holds tracing settings
type TelemetryConfig struct {
	// TraceExporter is none or stdout
	TraceExporter string `json:"trace_exporter" mapstructure:"trace_exporter" yaml:"trace_exporter"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			ScoreMin: 1,
			ScoreMax: 10,
		},
		Watch: WatchConfig{
			TimeoutSeconds:      DefaultTimeoutSeconds,
			PollIntervalSeconds: DefaultPollIntervalSeconds,
			SettleMillis:        DefaultSettleMillis,
			UseFSNotify:         true,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDirectory,
			Formats:   []string{"html", "json"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    DefaultHistoryPath,
		},
		Publish: PublishConfig{
			Enabled: false,
			Prefix:  DefaultPublishPrefix,
			Region:  DefaultPublishRegion,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// With no explicit path, the config is discovered starting from the target's directory.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file
func loadConfigFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// Create a new viper instance to avoid race conditions
	v := viper.New()
	config := DefaultConfig()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configCandidates are the file names searched during discovery, in order
var configCandidates = []string{
	"fixeval.yaml",
	"fixeval.yml",
	".fixeval.yaml",
	".fixeval.yml",
	"fixeval.json",
	".fixeval.json",
	".fixeval.toml",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common locations.
// targetPath is the artifact path or its directory.
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		if absPath, err := filepath.Abs(targetPath); err == nil {
			if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
				// The artifact usually does not exist yet; start from its directory
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, configCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", configCandidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, "fixeval"), configCandidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		if config := searchConfigInDirectory(filepath.Join(home, ".config", "fixeval"), configCandidates); config != "" {
			return config
		}
		if config := searchConfigInDirectory(home, configCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv("FIXEVAL_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

var structValidator = validator.New()

// Validate validates the configuration values. Metric names and weights are
// checked when the metric schema is built.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("%s", describeValidationError(err))
	}

	if !(c.Metrics.ScoreMin < c.Metrics.ScoreMax) {
		return fmt.Errorf("metrics.score_min (%g) must be less than metrics.score_max (%g)",
			c.Metrics.ScoreMin, c.Metrics.ScoreMax)
	}

	if c.Watch.PollInterval() > c.Watch.Timeout() {
		return fmt.Errorf("watch.poll_interval_seconds (%g) must not exceed watch.timeout_seconds (%d)",
			c.Watch.PollIntervalSeconds, c.Watch.TimeoutSeconds)
	}

	validFormats := map[string]bool{
		"json":     true,
		"html":     true,
		"markdown": true,
		"md":       true,
		"text":     true,
		"txt":      true,
	}

	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats cannot be empty")
	}
	for _, f := range c.Output.Formats {
		if !validFormats[strings.ToLower(f)] {
			return fmt.Errorf("invalid output.formats entry '%s', must be one of: json, html, markdown, text", f)
		}
	}

	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory cannot be empty")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}

	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format '%s', must be one of: text, json", c.Logging.Format)
	}

	validExporters := map[string]bool{
		"none":   true,
		"stdout": true,
	}

	if !validExporters[c.Telemetry.TraceExporter] {
		return fmt.Errorf("invalid telemetry.trace_exporter '%s', must be one of: none, stdout", c.Telemetry.TraceExporter)
	}

	return nil
}

// describeValidationError turns validator field errors into config key messages
func describeValidationError(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return err.Error()
	}

	fe := fieldErrs[0]
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", key, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", key, fe.Param(), fe.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when enabled", key)
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// configKey maps a validator namespace like Config.Watch.TimeoutSeconds to watch.timeout_seconds
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SaveConfig writes the configuration as YAML
func SaveConfig(config *Config, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
