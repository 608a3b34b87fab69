package service

import (
	"github.com/ludo-technologies/fixeval/domain"
)

// Validate checks a raw artifact against the schema and returns a new validated
// result. Metrics are checked in schema order and the first violation is returned.
// Scores are never clamped. The input artifact is not modified.
func Validate(raw *domain.RawEvaluationArtifact, schema *domain.MetricSchema) (*domain.ValidatedResult, error) {
	if raw == nil {
		return nil, domain.NewInvalidInputError("artifact is nil", nil)
	}
	if schema == nil {
		return nil, domain.NewInvalidInputError("metric schema is nil", nil)
	}

	result := &domain.ValidatedResult{
		Scores:       make([]domain.MetricScore, 0, schema.Len()),
		ExtraMetrics: make(map[string]domain.RawMetric),
		Artifact:     copyArtifact(raw),
	}

	for _, def := range schema.Metrics() {
		entry, ok := raw.Metrics[def.Name]
		if !ok {
			return nil, &domain.MissingMetricError{Metric: def.Name}
		}

		score, ok := toFloat(entry.Score)
		if !ok {
			return nil, &domain.InvalidScoreError{Metric: def.Name, Value: entry.Score}
		}

		if score < def.ScoreMin {
			return nil, &domain.ScoreOutOfRangeError{
				Metric: def.Name, Value: score, Bound: def.ScoreMin, Min: def.ScoreMin, Max: def.ScoreMax,
			}
		}
		if score > def.ScoreMax {
			return nil, &domain.ScoreOutOfRangeError{
				Metric: def.Name, Value: score, Bound: def.ScoreMax, Min: def.ScoreMin, Max: def.ScoreMax,
			}
		}

		result.Scores = append(result.Scores, domain.MetricScore{
			Name:        def.Name,
			Score:       score,
			Explanation: entry.Explanation,
			Strength:    entry.Strength,
			Weakness:    entry.Weakness,
			Comparison:  entry.Comparison,
		})
	}

	for name, entry := range raw.Metrics {
		if _, active := schema.Lookup(name); !active {
			result.ExtraMetrics[name] = entry
		}
	}

	return result, nil
}

// copyArtifact returns a copy that shares no slices or maps with the original
func copyArtifact(raw *domain.RawEvaluationArtifact) domain.RawEvaluationArtifact {
	out := *raw

	out.Metrics = make(map[string]domain.RawMetric, len(raw.Metrics))
	for k, v := range raw.Metrics {
		out.Metrics[k] = v
	}

	out.Extra = make(map[string]any, len(raw.Extra))
	for k, v := range raw.Extra {
		out.Extra[k] = v
	}

	if raw.JudgeOverall != nil {
		overall := *raw.JudgeOverall
		out.JudgeOverall = &overall
	}

	out.Strengths = append([]string(nil), raw.Strengths...)
	out.Weaknesses = append([]string(nil), raw.Weaknesses...)
	out.Suggestions = append([]string(nil), raw.Suggestions...)
	out.Differences = append([]domain.DifferenceNote(nil), raw.Differences...)
	return out
}
