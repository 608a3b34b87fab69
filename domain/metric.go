package domain

import (
	"fmt"
	"math"
	"strconv"
)

// WeightTolerance is the allowed deviation of the summed metric weights from 1.0
const WeightTolerance = 0.001

// Default score range used by the built-in metrics
const (
	DefaultScoreMin = 1.0
	DefaultScoreMax = 10.0
)

// MetricDefinition declares one scoring dimension
type MetricDefinition struct {
	Name        string  `json:"name" yaml:"name"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	ScoreMin    float64 `json:"score_min" yaml:"score_min"`
	ScoreMax    float64 `json:"score_max" yaml:"score_max"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// InRange reports whether score lies in [ScoreMin, ScoreMax]
func (d MetricDefinition) InRange(score float64) bool {
	return score >= d.ScoreMin && score <= d.ScoreMax
}

// Normalize maps a raw score onto [0, 1]
func (d MetricDefinition) Normalize(score float64) float64 {
	return (score - d.ScoreMin) / (d.ScoreMax - d.ScoreMin)
}

// DisplayTitle returns Title, or Name when no title is set
func (d MetricDefinition) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// MetricSchema is the immutable, ordered set of active metrics
type MetricSchema struct {
	definitions []MetricDefinition
	index       map[string]int
}

// NewMetricSchema checks the definitions and freezes them into a schema
func NewMetricSchema(definitions []MetricDefinition) (*MetricSchema, error) {
	if len(definitions) == 0 {
		return nil, NewConfigError("metric schema has no active metrics", nil)
	}

	schema := &MetricSchema{
		definitions: make([]MetricDefinition, 0, len(definitions)),
		index:       make(map[string]int, len(definitions)),
	}

	for _, def := range definitions {
		if def.Name == "" {
			return nil, NewConfigError("metric name cannot be empty", nil)
		}
		if _, dup := schema.index[def.Name]; dup {
			return nil, NewConfigError(fmt.Sprintf("metric %q is declared more than once", def.Name), nil)
		}
		if math.IsNaN(def.Weight) || math.IsInf(def.Weight, 0) {
			return nil, NewConfigError(fmt.Sprintf("metric %q has a non-finite weight", def.Name), nil)
		}
		if def.Weight < 0 {
			return nil, NewConfigError(
				fmt.Sprintf("metric %q has negative weight %s", def.Name, FormatNumber(def.Weight)), nil)
		}
		if def.Weight > 1 {
			return nil, NewConfigError(
				fmt.Sprintf("metric %q weight %s exceeds 1", def.Name, FormatNumber(def.Weight)), nil)
		}
		if !(def.ScoreMin < def.ScoreMax) {
			return nil, NewConfigError(
				fmt.Sprintf("metric %q score_min (%s) must be less than score_max (%s)",
					def.Name, FormatNumber(def.ScoreMin), FormatNumber(def.ScoreMax)), nil)
		}

		schema.index[def.Name] = len(schema.definitions)
		schema.definitions = append(schema.definitions, def)
	}

	if total := schema.TotalWeight(); math.Abs(total-1.0) > WeightTolerance {
		return nil, NewConfigError(
			fmt.Sprintf("metric weights sum to %s, expected 1.0 (tolerance %s)",
				FormatNumber(total), FormatNumber(WeightTolerance)), nil)
	}

	return schema, nil
}

// Metrics returns the active definitions in schema order
func (s *MetricSchema) Metrics() []MetricDefinition {
	out := make([]MetricDefinition, len(s.definitions))
	copy(out, s.definitions)
	return out
}

// Lookup finds an active metric by name
func (s *MetricSchema) Lookup(name string) (MetricDefinition, bool) {
	i, ok := s.index[name]
	if !ok {
		return MetricDefinition{}, false
	}
	return s.definitions[i], true
}

// Len returns the number of active metrics
func (s *MetricSchema) Len() int {
	return len(s.definitions)
}

// TotalWeight returns the summed weight of the active metrics
func (s *MetricSchema) TotalWeight() float64 {
	total := 0.0
	for _, def := range s.definitions {
		total += def.Weight
	}
	return total
}

// FormatNumber prints a float with the shortest exact representation
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
