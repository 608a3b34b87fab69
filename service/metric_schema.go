package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/config"
)

// Metric names known to the catalog
const (
	MetricCorrectness   = "correctness"
	MetricCompleteness  = "completeness"
	MetricPatternMatch  = "pattern_match"
	MetricCleanliness   = "cleanliness"
	MetricEfficiency    = "efficiency"
	MetricComplexity    = "complexity"
	MetricCodeQuality   = "code_quality"
	MetricTesting       = "testing"
	MetricDocumentation = "documentation"
)

// metricCatalog lists every recognized metric with its default weight.
// Only the first six are active unless configured otherwise.
var metricCatalog = []domain.MetricDefinition{
	{Name: MetricCorrectness, Title: "Correctness", Description: "Does the fix correctly address the bug?", Weight: 0.30},
	{Name: MetricCompleteness, Title: "Completeness", Description: "Does the fix address all aspects of the bug?", Weight: 0.15},
	{Name: MetricPatternMatch, Title: "Pattern Match", Description: "Does the fix follow the patterns of the reference fix and the codebase?", Weight: 0.10},
	{Name: MetricCleanliness, Title: "Cleanliness", Description: "Is the code clean, readable and well structured?", Weight: 0.15},
	{Name: MetricEfficiency, Title: "Efficiency", Description: "Is the fix efficient in terms of performance?", Weight: 0.15},
	{Name: MetricComplexity, Title: "Complexity", Description: "Is the fix appropriately complex for the problem?", Weight: 0.15},
	{Name: MetricCodeQuality, Title: "Code Quality", Description: "Overall quality of the changed code", Weight: 0.15},
	{Name: MetricTesting, Title: "Testing", Description: "Are the changes covered by adequate tests?", Weight: 0.10},
	{Name: MetricDocumentation, Title: "Documentation", Description: "Are the changes documented where needed?", Weight: 0.15},
}

var defaultActiveMetrics = []string{
	MetricCorrectness,
	MetricCompleteness,
	MetricPatternMatch,
	MetricCleanliness,
	MetricEfficiency,
	MetricComplexity,
}

// CatalogMetrics returns every recognized metric with default range and weight
func CatalogMetrics() []domain.MetricDefinition {
	out := make([]domain.MetricDefinition, len(metricCatalog))
	copy(out, metricCatalog)
	for i := range out {
		out[i].ScoreMin = domain.DefaultScoreMin
		out[i].ScoreMax = domain.DefaultScoreMax
	}
	return out
}

// DefaultMetricSchema returns the schema used when nothing is configured
func DefaultMetricSchema() *domain.MetricSchema {
	schema, err := NewMetricSchema(config.DefaultConfig().Metrics)
	if err != nil {
		panic(fmt.Sprintf("built-in metric schema is invalid: %v", err))
	}
	return schema
}

// NewMetricSchema builds the active schema from the catalog and configuration.
//
// The active set is metrics.active when given. Otherwise it is the six default
// metrics plus any other catalog metric named in metrics.weights. Active metrics
// without a configured weight keep their catalog weight. Weights are never
// renormalized.
func NewMetricSchema(cfg config.MetricsConfig) (*domain.MetricSchema, error) {
	catalog := make(map[string]domain.MetricDefinition, len(metricCatalog))
	for _, def := range CatalogMetrics() {
		catalog[def.Name] = def
	}

	for _, name := range sortedKeys(cfg.Weights) {
		if _, ok := catalog[name]; !ok {
			return nil, domain.NewConfigError(
				fmt.Sprintf("unrecognized metric %q in metrics.weights (known: %s)", name, knownMetricNames()), nil)
		}
	}

	active, err := resolveActiveMetrics(cfg, catalog)
	if err != nil {
		return nil, err
	}

	scoreMin, scoreMax := cfg.ScoreMin, cfg.ScoreMax
	if scoreMin == 0 && scoreMax == 0 {
		scoreMin, scoreMax = domain.DefaultScoreMin, domain.DefaultScoreMax
	}

	definitions := make([]domain.MetricDefinition, 0, len(active))
	for _, name := range active {
		def := catalog[name]
		def.ScoreMin = scoreMin
		def.ScoreMax = scoreMax
		if w, ok := cfg.Weights[name]; ok {
			def.Weight = w
		}
		definitions = append(definitions, def)
	}

	return domain.NewMetricSchema(definitions)
}

func resolveActiveMetrics(cfg config.MetricsConfig, catalog map[string]domain.MetricDefinition) ([]string, error) {
	if len(cfg.Active) > 0 {
		active := make([]string, 0, len(cfg.Active))
		for _, raw := range cfg.Active {
			name := strings.ToLower(strings.TrimSpace(raw))
			if _, ok := catalog[name]; !ok {
				return nil, domain.NewConfigError(
					fmt.Sprintf("unrecognized metric %q in metrics.active (known: %s)", raw, knownMetricNames()), nil)
			}
			active = append(active, name)
		}
		for name := range cfg.Weights {
			if !contains(active, name) {
				return nil, domain.NewConfigError(
					fmt.Sprintf("metrics.weights sets %q but it is not in metrics.active", name), nil)
			}
		}
		return active, nil
	}

	selected := make(map[string]bool, len(defaultActiveMetrics)+len(cfg.Weights))
	for _, name := range defaultActiveMetrics {
		selected[name] = true
	}
	for name := range cfg.Weights {
		selected[name] = true
	}

	// Keep catalog order so the schema order is stable across configs
	active := make([]string, 0, len(selected))
	for _, def := range metricCatalog {
		if selected[def.Name] {
			active = append(active, def.Name)
		}
	}
	return active, nil
}

func knownMetricNames() string {
	names := make([]string, len(metricCatalog))
	for i, def := range metricCatalog {
		names[i] = def.Name
	}
	return strings.Join(names, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
