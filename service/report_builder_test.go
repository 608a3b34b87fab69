package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ludo-technologies/fixeval/domain"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func buildModel(t *testing.T, raw *domain.RawEvaluationArtifact, ctx domain.ReportContext) (*domain.ReportModel, error) {
	t.Helper()
	schema := DefaultMetricSchema()
	result, err := Validate(raw, schema)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	builder := NewReportBuilder(schema).WithClock(func() time.Time { return fixedTime })
	return builder.Build(result, Aggregate(result, schema), ctx)
}

func TestReportBuilder_Build(t *testing.T) {
	raw := uniformRaw(8.0)
	raw["documentation"] = 4.0
	artifact := rawArtifact(raw)
	judge := 7.5
	artifact.JudgeOverall = &judge
	artifact.Differences = []domain.DifferenceNote{{Note: "Judge note"}}

	model, err := buildModel(t, artifact, domain.ReportContext{
		Differences: []domain.DifferenceNote{{File: "a.go", Status: domain.DifferenceBoth}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if model.Repository != "owner/project" || model.PRNumber != "42" {
		t.Errorf("Artifact context not used: %s #%s", model.Repository, model.PRNumber)
	}
	if model.PRURL != "https://github.com/owner/project/pull/42" {
		t.Errorf("Unexpected derived PR URL: %s", model.PRURL)
	}
	if !model.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected clock time, got %s", model.GeneratedAt)
	}
	if model.RunID == "" {
		t.Error("Expected a generated run ID")
	}
	if model.SchemaVersion != domain.ReportSchemaVersion {
		t.Errorf("Unexpected schema version %s", model.SchemaVersion)
	}

	wantOverall := 7.0 / 9 * 100
	if math.Abs(model.OverallScore-wantOverall) > 1e-9 {
		t.Errorf("Expected overall %v, got %v", wantOverall, model.OverallScore)
	}
	if model.Grade != "C" {
		t.Errorf("Expected grade C, got %s", model.Grade)
	}
	if model.JudgeOverall == nil || *model.JudgeOverall != 7.5 {
		t.Error("Judge overall should be carried for reference")
	}

	if len(model.Metrics) != 6 {
		t.Fatalf("Expected 6 metrics, got %d", len(model.Metrics))
	}
	first := model.Metrics[0]
	if first.Title != "Correctness" || first.Explanation != "because correctness" {
		t.Errorf("Unexpected first metric: %+v", first)
	}

	if len(model.AdditionalMetrics) != 1 || model.AdditionalMetrics[0].Name != "documentation" {
		t.Fatalf("Expected documentation as additional metric, got %+v", model.AdditionalMetrics)
	}
	if s := model.AdditionalMetrics[0].Score; s == nil || *s != 4 {
		t.Errorf("Expected additional score 4, got %v", s)
	}

	if len(model.Differences) != 2 || model.Differences[0].Note != "Judge note" || model.Differences[1].File != "a.go" {
		t.Errorf("Unexpected differences: %+v", model.Differences)
	}
	if model.Suggestions == nil || model.Weaknesses == nil {
		t.Error("Empty lists should be non-nil")
	}
}

func TestReportBuilder_ContextOverridesArtifact(t *testing.T) {
	model, err := buildModel(t, rawArtifact(uniformRaw(8.0)), domain.ReportContext{
		Repository:  "other/repo",
		PRNumber:    "#7",
		PRURL:       "https://git.example.com/other/repo/pulls/7",
		RunID:       "0b5c8a5e-4a7b-4d7e-9d1f-1a2b3c4d5e6f",
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600)),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if model.Repository != "other/repo" || model.PRNumber != "7" {
		t.Errorf("Context should win: %s #%s", model.Repository, model.PRNumber)
	}
	if model.PRURL != "https://git.example.com/other/repo/pulls/7" {
		t.Errorf("Unexpected PR URL: %s", model.PRURL)
	}
	if model.RunID != "0b5c8a5e-4a7b-4d7e-9d1f-1a2b3c4d5e6f" {
		t.Errorf("Unexpected run ID: %s", model.RunID)
	}
	if model.GeneratedAt.Location() != time.UTC || model.GeneratedAt.Hour() != 2 {
		t.Errorf("Expected UTC timestamp, got %s", model.GeneratedAt)
	}
}

func TestReportBuilder_MissingRepository(t *testing.T) {
	artifact := rawArtifact(uniformRaw(8.0))
	artifact.Repository = ""

	_, err := buildModel(t, artifact, domain.ReportContext{})
	var incomplete *domain.IncompleteContextError
	if !errors.As(err, &incomplete) || incomplete.Field != "repository" {
		t.Errorf("Expected IncompleteContextError for repository, got %v", err)
	}
}

func TestReportBuilder_InvalidContext(t *testing.T) {
	_, err := buildModel(t, rawArtifact(uniformRaw(8.0)), domain.ReportContext{PRURL: "not a url"})
	if err == nil {
		t.Error("Expected an invalid PR URL to be rejected")
	}

	_, err = buildModel(t, rawArtifact(uniformRaw(8.0)), domain.ReportContext{RunID: "run-1"})
	if err == nil {
		t.Error("Expected a non-UUID run ID to be rejected")
	}
}

func TestDerivePRURL(t *testing.T) {
	tests := []struct {
		repo, pr, want string
	}{
		{"owner/project", "42", "https://github.com/owner/project/pull/42"},
		{"owner/project", "", ""},
		{"project", "42", ""},
		{"https://gitlab.com/a/b", "1", ""},
	}
	for _, tt := range tests {
		if got := derivePRURL(tt.repo, tt.pr); got != tt.want {
			t.Errorf("derivePRURL(%q, %q) = %q, want %q", tt.repo, tt.pr, got, tt.want)
		}
	}
}
