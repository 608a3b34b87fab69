package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	// Verify metric defaults
	if config.Metrics.ScoreMin != 1 || config.Metrics.ScoreMax != 10 {
		t.Errorf("Expected score range [1, 10], got [%v, %v]", config.Metrics.ScoreMin, config.Metrics.ScoreMax)
	}
	if len(config.Metrics.Weights) != 0 {
		t.Error("Default weights should come from the metric catalog")
	}

	// Verify watch defaults
	if config.Watch.Timeout() != 600*time.Second {
		t.Errorf("Expected timeout 600s, got %s", config.Watch.Timeout())
	}
	if config.Watch.PollInterval() != 2*time.Second {
		t.Errorf("Expected poll interval 2s, got %s", config.Watch.PollInterval())
	}
	if config.Watch.SettleDelay() != time.Second {
		t.Errorf("Expected settle delay 1s, got %s", config.Watch.SettleDelay())
	}
	if !config.Watch.UseFSNotify {
		t.Error("fsnotify should be enabled by default")
	}

	// Verify output defaults
	if config.Output.Directory != DefaultOutputDirectory {
		t.Errorf("Expected directory '%s', got '%s'", DefaultOutputDirectory, config.Output.Directory)
	}
	if len(config.Output.Formats) != 2 {
		t.Errorf("Expected 2 default formats, got %v", config.Output.Formats)
	}

	if config.History.Enabled || config.Publish.Enabled {
		t.Error("History and publishing should be off by default")
	}
	if config.Telemetry.TraceExporter != "none" {
		t.Errorf("Expected trace exporter 'none', got '%s'", config.Telemetry.TraceExporter)
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	config := DefaultConfig()

	err := config.Validate()
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"zero timeout", func(c *Config) { c.Watch.TimeoutSeconds = 0 }, "watch.timeout_seconds"},
		{"negative interval", func(c *Config) { c.Watch.PollIntervalSeconds = -1 }, "watch.poll_interval_seconds"},
		{"negative settle", func(c *Config) { c.Watch.SettleMillis = -5 }, "watch.settle_millis"},
		{"interval above timeout", func(c *Config) { c.Watch.PollIntervalSeconds = 700 }, "poll_interval_seconds"},
		{"inverted range", func(c *Config) { c.Metrics.ScoreMin = 10; c.Metrics.ScoreMax = 1 }, "score_min"},
		{"empty formats", func(c *Config) { c.Output.Formats = nil }, "output.formats"},
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"pdf"} }, "pdf"},
		{"empty directory", func(c *Config) { c.Output.Directory = "" }, "output.directory"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"history without path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
		{"publish without bucket", func(c *Config) { c.Publish.Enabled = true }, "publish.bucket"},
		{"bad endpoint", func(c *Config) { c.Publish.Endpoint = "not a url" }, "publish.endpoint"},
		{"unknown exporter", func(c *Config) { c.Telemetry.TraceExporter = "zipkin" }, "telemetry.trace_exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("Expected error to mention '%s', got: %v", tt.wantKey, err)
			}
		})
	}
}

func TestConfig_ValidOutputFormats(t *testing.T) {
	config := DefaultConfig()
	validFormats := []string{"text", "txt", "json", "markdown", "md", "HTML"}

	for _, format := range validFormats {
		config.Output.Formats = []string{format}
		err := config.Validate()
		if err != nil {
			t.Errorf("Format '%s' should be valid, got error: %v", format, err)
		}
	}
}

func TestLoadConfig_Default(t *testing.T) {
	// Load with empty path should return default
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig with empty path failed: %v", err)
	}
	if config == nil {
		t.Fatal("Config should not be nil")
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent config file")
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixeval.yaml")
	content := `
metrics:
  weights:
    correctness: 0.40
    pattern_match: 0.05
    cleanliness: 0.10
watch:
  timeout_seconds: 30
  poll_interval_seconds: 0.5
output:
  formats: [markdown]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if math.Abs(config.Metrics.Weights["correctness"]-0.40) > 1e-9 {
		t.Errorf("Expected correctness weight 0.40, got %v", config.Metrics.Weights["correctness"])
	}
	if config.Watch.Timeout() != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", config.Watch.Timeout())
	}
	if config.Watch.PollInterval() != 500*time.Millisecond {
		t.Errorf("Expected 500ms interval, got %s", config.Watch.PollInterval())
	}
	if len(config.Output.Formats) != 1 || config.Output.Formats[0] != "markdown" {
		t.Errorf("Expected [markdown], got %v", config.Output.Formats)
	}
	// Unset keys keep their defaults
	if config.Output.Directory != DefaultOutputDirectory {
		t.Errorf("Expected default directory, got %s", config.Output.Directory)
	}
	if config.Metrics.ScoreMax != 10 {
		t.Errorf("Expected default score_max, got %v", config.Metrics.ScoreMax)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixeval.yaml")
	if err := os.WriteFile(path, []byte("watch:\n  timeout_seconds: -1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "watch.timeout_seconds") {
		t.Errorf("Expected invalid timeout error, got %v", err)
	}
}

func TestLoadConfigWithTarget_Discovery(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, "fixeval.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  directory: found\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	nested := filepath.Join(root, "results", "pr-42")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	// The artifact does not exist yet; discovery starts from its directory
	config, err := LoadConfigWithTarget("", filepath.Join(nested, "project_42_results.json"))
	if err != nil {
		t.Fatalf("LoadConfigWithTarget failed: %v", err)
	}
	if config.Output.Directory != "found" {
		t.Errorf("Expected discovered config, got directory %s", config.Output.Directory)
	}
}

func TestSearchConfigInDirectory(t *testing.T) {
	tempDir := t.TempDir()

	// Create a config file
	configPath := filepath.Join(tempDir, "fixeval.yml")
	err := os.WriteFile(configPath, []byte("logging:\n  level: debug"), 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Search for config
	result := searchConfigInDirectory(tempDir, configCandidates)
	if result != configPath {
		t.Errorf("Expected %s, got %s", configPath, result)
	}

	// Search in empty directory
	result = searchConfigInDirectory(t.TempDir(), configCandidates)
	if result != "" {
		t.Error("Expected empty string for directory without config")
	}
}

func TestConfigKey(t *testing.T) {
	tests := map[string]string{
		"Config.Watch.TimeoutSeconds": "watch.timeout_seconds",
		"Config.Publish.Bucket":       "publish.bucket",
		"History.Path":                "history.path",
	}
	for in, want := range tests {
		if got := configKey(in); got != want {
			t.Errorf("configKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixeval.yaml")
	config := DefaultConfig()
	config.Output.Formats = []string{"text"}

	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(loaded.Output.Formats) != 1 || loaded.Output.Formats[0] != "text" {
		t.Errorf("Expected [text], got %v", loaded.Output.Formats)
	}

	config.Output.Directory = ""
	if err := SaveConfig(config, path); err == nil {
		t.Error("SaveConfig should refuse an invalid config")
	}
}

func TestConfigTemplates_AreValid(t *testing.T) {
	for preset := range GetWeightPresets() {
		opts := DefaultTemplateOptions()
		opts.Preset = preset
		opts.Formats = []string{"html", "markdown"}

		path := filepath.Join(t.TempDir(), "fixeval.yaml")
		if err := os.WriteFile(path, []byte(GetFullConfigTemplate(opts)), 0644); err != nil {
			t.Fatalf("Failed to write template: %v", err)
		}
		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Template for %s does not load: %v", preset, err)
		}

		total := 0.0
		for _, w := range config.Metrics.Weights {
			total += w
		}
		if math.Abs(total-1) > 0.001 {
			t.Errorf("Preset %s weights sum to %v", preset, total)
		}
	}

	minimal, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("Embedded config does not parse: %v", err)
	}
	if err := minimal.Validate(); err != nil {
		t.Errorf("Embedded config is invalid: %v", err)
	}
}
