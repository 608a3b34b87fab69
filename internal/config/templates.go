package config

import (
	"strconv"
	"strings"
)

// WeightPreset names a metric weighting used by the init wizard
type WeightPreset string

const (
	PresetBalanced         WeightPreset = "balanced"
	PresetCorrectnessFirst WeightPreset = "correctness-first"
	PresetQualityFirst     WeightPreset = "quality-first"
)

// MetricWeight is one named weight in a preset
type MetricWeight struct {
	Name   string
	Weight float64
}

// GetWeightPresets returns the weights for each preset, in catalog order
func GetWeightPresets() map[WeightPreset][]MetricWeight {
	return map[WeightPreset][]MetricWeight{
		PresetBalanced: {
			{"correctness", 0.30},
			{"completeness", 0.15},
			{"pattern_match", 0.10},
			{"cleanliness", 0.15},
			{"efficiency", 0.15},
			{"complexity", 0.15},
		},
		PresetCorrectnessFirst: {
			{"correctness", 0.45},
			{"completeness", 0.20},
			{"pattern_match", 0.05},
			{"cleanliness", 0.10},
			{"efficiency", 0.10},
			{"complexity", 0.10},
		},
		PresetQualityFirst: {
			{"correctness", 0.25},
			{"completeness", 0.10},
			{"pattern_match", 0.15},
			{"cleanliness", 0.20},
			{"efficiency", 0.15},
			{"complexity", 0.15},
		},
	}
}

// TemplateOptions are the choices made by 'fixeval init'
type TemplateOptions struct {
	Preset         WeightPreset
	Formats        []string
	TimeoutSeconds int
}

// DefaultTemplateOptions returns the options used without the wizard
func DefaultTemplateOptions() TemplateOptions {
	return TemplateOptions{
		Preset:         PresetBalanced,
		Formats:        []string{"html", "json"},
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(opts TemplateOptions) string {
	weights, ok := GetWeightPresets()[opts.Preset]
	if !ok {
		weights = GetWeightPresets()[PresetBalanced]
	}
	formats := opts.Formats
	if len(formats) == 0 {
		formats = DefaultTemplateOptions().Formats
	}
	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}

	return `# fixeval configuration
# Preset: ` + string(opts.Preset) + `

# ============================================================================
# METRICS
# ============================================================================
# Every active metric must be scored by the judge. Weights must sum to 1.0
# (tolerance 0.001); the run stops with a configuration error otherwise.
metrics:
  # Score range used by every metric
  score_min: 1
  score_max: 10

  # Metric name -> weight
  weights:
` + formatWeights(weights) + `
  # Restrict the active set (default: the six metrics above). Recognized extra
  # metrics: code_quality, testing, documentation.
  # active: [correctness, completeness, code_quality, efficiency, testing, documentation]

# ============================================================================
# RESULTS WATCHER
# ============================================================================
watch:
  # Give up waiting for the judge after this many seconds
  timeout_seconds: ` + strconv.Itoa(timeout) + `

  # How often to check for the artifact
  poll_interval_seconds: 2

  # Pause after the artifact first appears, so a half-written file is not read
  settle_millis: 1000

  # Wake up early on file system events (polling still applies)
  use_fsnotify: true

# ============================================================================
# OUTPUT
# ============================================================================
output:
  directory: reports

  # Any of: json, html, markdown, text
  formats: ` + formatYAMLList(formats) + `

  # gitignore-style patterns left out of implementation differences
  ignore_paths:
    - "*.lock"
    - "package-lock.json"
    - "go.sum"

logging:
  # debug, info, warn, error
  level: info
  # text or json
  format: text

# ============================================================================
# HISTORY
# ============================================================================
# Records every run in a local SQLite database ('fixeval history')
history:
  enabled: false
  path: .fixeval/history.db

# ============================================================================
# PUBLISHING
# ============================================================================
# Uploads rendered reports to S3-compatible storage. Credentials are read from
# the standard AWS environment variables or profile.
publish:
  enabled: false
  bucket: ""
  prefix: reports/
  region: us-east-1
  # endpoint: http://localhost:9000

telemetry:
  # none or stdout
  trace_exporter: none
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return DefaultConfigYAML
}

func formatWeights(weights []MetricWeight) string {
	var sb strings.Builder
	for _, w := range weights {
		sb.WriteString("    ")
		sb.WriteString(w.Name)
		sb.WriteString(": ")
		sb.WriteString(strconv.FormatFloat(w.Weight, 'f', 2, 64))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatYAMLList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
