package service

import (
	"errors"
	"testing"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/testutil"
)

func rawArtifact(scores map[string]any) *domain.RawEvaluationArtifact {
	metrics := make(map[string]domain.RawMetric, len(scores))
	for name, score := range scores {
		metrics[name] = domain.RawMetric{Score: score, Explanation: "because " + name}
	}
	return &domain.RawEvaluationArtifact{
		Repository: "owner/project",
		PRNumber:   "42",
		Metrics:    metrics,
		Strengths:  []string{"Small change"},
	}
}

func uniformRaw(score any) map[string]any {
	scores := make(map[string]any, len(testutil.DefaultMetricNames))
	for _, name := range testutil.DefaultMetricNames {
		scores[name] = score
	}
	return scores
}

func TestValidate_Valid(t *testing.T) {
	schema := DefaultMetricSchema()
	raw := uniformRaw(8.0)
	raw["testing"] = 3.0

	result, err := Validate(rawArtifact(raw), schema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Scores) != schema.Len() {
		t.Fatalf("Expected %d scores, got %d", schema.Len(), len(result.Scores))
	}
	for i, def := range schema.Metrics() {
		if result.Scores[i].Name != def.Name {
			t.Errorf("Scores not in schema order at %d: %s", i, result.Scores[i].Name)
		}
	}
	if result.Scores[0].Explanation != "because correctness" {
		t.Errorf("Narrative not kept: %q", result.Scores[0].Explanation)
	}
	if _, ok := result.ExtraMetrics["testing"]; !ok {
		t.Error("Inactive metric should be kept as extra")
	}
	if _, ok := result.Score("testing"); ok {
		t.Error("Inactive metric must not be scored")
	}
}

func TestValidate_MissingMetric(t *testing.T) {
	raw := uniformRaw(8.0)
	delete(raw, "correctness")

	_, err := Validate(rawArtifact(raw), DefaultMetricSchema())
	var missing *domain.MissingMetricError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingMetricError, got %v", err)
	}
	if missing.Metric != "correctness" {
		t.Errorf("Expected correctness, got %s", missing.Metric)
	}
	if !errors.Is(err, domain.ErrMalformedArtifact) {
		t.Error("Missing metric should be a malformed artifact")
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		bound float64
	}{
		{"above maximum", 11, 10},
		{"below minimum", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := uniformRaw(8.0)
			raw["efficiency"] = tt.score

			_, err := Validate(rawArtifact(raw), DefaultMetricSchema())
			var rangeErr *domain.ScoreOutOfRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("Expected ScoreOutOfRangeError, got %v", err)
			}
			if rangeErr.Metric != "efficiency" {
				t.Errorf("Expected efficiency, got %s", rangeErr.Metric)
			}
			if rangeErr.Value != tt.score {
				t.Errorf("Expected value %v, got %v", tt.score, rangeErr.Value)
			}
			if rangeErr.Bound != tt.bound {
				t.Errorf("Expected bound %v, got %v", tt.bound, rangeErr.Bound)
			}
		})
	}
}

func TestValidate_BoundsAreInclusive(t *testing.T) {
	raw := uniformRaw(10)
	raw["correctness"] = 1

	if _, err := Validate(rawArtifact(raw), DefaultMetricSchema()); err != nil {
		t.Errorf("Scores on the bounds should validate: %v", err)
	}
}

func TestValidate_InvalidScore(t *testing.T) {
	tests := []struct {
		name  string
		score any
	}{
		{"string", "eight"},
		{"null", nil},
		{"bool", true},
		{"object", map[string]any{"value": 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := uniformRaw(8.0)
			raw["cleanliness"] = tt.score

			_, err := Validate(rawArtifact(raw), DefaultMetricSchema())
			var invalid *domain.InvalidScoreError
			if !errors.As(err, &invalid) {
				t.Fatalf("Expected InvalidScoreError, got %v", err)
			}
			if invalid.Metric != "cleanliness" {
				t.Errorf("Expected cleanliness, got %s", invalid.Metric)
			}
		})
	}
}

func TestValidate_FirstViolationInSchemaOrder(t *testing.T) {
	raw := uniformRaw(8.0)
	delete(raw, "complexity")
	raw["completeness"] = "n/a"

	_, err := Validate(rawArtifact(raw), DefaultMetricSchema())
	var invalid *domain.InvalidScoreError
	if !errors.As(err, &invalid) || invalid.Metric != "completeness" {
		t.Errorf("Expected completeness to be reported first, got %v", err)
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	raw := rawArtifact(uniformRaw(8.0))
	result, err := Validate(raw, DefaultMetricSchema())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	result.Artifact.Strengths[0] = "changed"
	result.Artifact.Metrics["correctness"] = domain.RawMetric{Score: 1}

	if raw.Strengths[0] != "Small change" {
		t.Error("Validated copy shares strengths with the input")
	}
	if raw.Metrics["correctness"].Score != 8.0 {
		t.Error("Validated copy shares metrics with the input")
	}
}

func TestValidate_NilInputs(t *testing.T) {
	if _, err := Validate(nil, DefaultMetricSchema()); err == nil {
		t.Error("Expected error for nil artifact")
	}
	if _, err := Validate(rawArtifact(uniformRaw(8.0)), nil); err == nil {
		t.Error("Expected error for nil schema")
	}
}
