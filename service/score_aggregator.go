package service

import (
	"github.com/ludo-technologies/fixeval/domain"
)

// Aggregate computes the weighted, normalized overall score. It is pure: the same
// result and schema always give a bit-identical score, because contributions are
// summed in schema order. The overall score is not rounded.
//
// The result must come from Validate with the same schema.
func Aggregate(result *domain.ValidatedResult, schema *domain.MetricSchema) domain.AggregatedScore {
	defs := schema.Metrics()
	score := domain.AggregatedScore{
		PerMetric: make([]domain.MetricContribution, 0, len(defs)),
	}

	sum := 0.0
	for _, def := range defs {
		ms, _ := result.Score(def.Name)
		normalized := def.Normalize(ms.Score)
		contribution := normalized * def.Weight
		sum += contribution

		score.PerMetric = append(score.PerMetric, domain.MetricContribution{
			Name:                 def.Name,
			RawScore:             ms.Score,
			ScoreMin:             def.ScoreMin,
			ScoreMax:             def.ScoreMax,
			Weight:               def.Weight,
			Normalized:           normalized,
			WeightedContribution: contribution,
		})
	}

	score.OverallScore = 100 * sum
	return score
}
