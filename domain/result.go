package domain

// MetricScore is a validated score for one active metric
type MetricScore struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
	Strength    string  `json:"strength,omitempty"`
	Weakness    string  `json:"weakness,omitempty"`
	Comparison  string  `json:"comparison,omitempty"`
}

// ValidatedResult holds exactly one numeric score per active metric, in schema order
type ValidatedResult struct {
	Scores []MetricScore `json:"scores"`

	// ExtraMetrics are judged metrics outside the active schema. They are kept for
	// reporting but never aggregated.
	ExtraMetrics map[string]RawMetric `json:"extra_metrics,omitempty"`

	// Artifact is a private copy of the validated input, for its context fields
	Artifact RawEvaluationArtifact `json:"-"`
}

// Score returns the validated score for a metric
func (r *ValidatedResult) Score(name string) (MetricScore, bool) {
	for _, s := range r.Scores {
		if s.Name == name {
			return s, true
		}
	}
	return MetricScore{}, false
}

// MetricContribution is one metric's share of the overall score
type MetricContribution struct {
	Name     string  `json:"name"`
	RawScore float64 `json:"raw_score"`
	ScoreMin float64 `json:"score_min"`
	ScoreMax float64 `json:"score_max"`
	Weight   float64 `json:"weight"`

	// Normalized is (raw - min) / (max - min)
	Normalized float64 `json:"normalized"`

	// WeightedContribution is Normalized * Weight
	WeightedContribution float64 `json:"weighted_contribution"`
}

// AggregatedScore is derived from a ValidatedResult and never rounded
type AggregatedScore struct {
	PerMetric    []MetricContribution `json:"per_metric"`
	OverallScore float64              `json:"overall_score"`
}

// Contribution returns the contribution of a metric
func (a AggregatedScore) Contribution(name string) (MetricContribution, bool) {
	for _, c := range a.PerMetric {
		if c.Name == name {
			return c, true
		}
	}
	return MetricContribution{}, false
}
