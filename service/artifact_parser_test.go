package service

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/fixeval/internal/testutil"
)

func TestParseArtifact_JSON(t *testing.T) {
	data := testutil.SampleArtifactJSON(t, "owner/project", "42", testutil.UniformScores(8))

	artifact, err := ParseArtifact(data, ArtifactFormatJSON)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if artifact.Repository != "owner/project" {
		t.Errorf("Expected repository owner/project, got %s", artifact.Repository)
	}
	if artifact.PRNumber != "42" {
		t.Errorf("Expected PR 42, got %s", artifact.PRNumber)
	}
	if len(artifact.Metrics) != 6 {
		t.Errorf("Expected 6 metrics, got %d", len(artifact.Metrics))
	}

	correctness := artifact.Metrics["correctness"]
	score, ok := correctness.Score.(json.Number)
	if !ok || score.String() != "8" {
		t.Errorf("Expected json.Number 8, got %#v", correctness.Score)
	}
	if correctness.Explanation != "Explanation for correctness" {
		t.Errorf("Unexpected explanation: %s", correctness.Explanation)
	}
	if len(artifact.Strengths) != 1 || len(artifact.Suggestions) != 1 {
		t.Errorf("Expected lists to be parsed, got %+v", artifact)
	}
}

func TestParseArtifact_LegacyLayout(t *testing.T) {
	data := []byte(`{
  "repo_name": "owner/legacy",
  "pr_number": 7,
  "criteria": {
    "correctness": {"score": 9},
    "testing": 6
  },
  "overall": {
    "score": 8.5,
    "strengths": ["Small diff"],
    "weaknesses": ["No test"],
    "suggestions": ["Add a test"]
  },
  "model": "judge-1"
}`)

	artifact, err := ParseArtifact(data, ArtifactFormatJSON)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if artifact.Repository != "owner/legacy" {
		t.Errorf("Expected repo_name fallback, got %q", artifact.Repository)
	}
	if artifact.PRNumber != "7" {
		t.Errorf("Expected numeric PR to become text, got %q", artifact.PRNumber)
	}
	if _, ok := artifact.Metrics["testing"]; !ok {
		t.Error("Expected criteria to be read as metrics")
	}
	if artifact.JudgeOverall == nil || *artifact.JudgeOverall != 8.5 {
		t.Errorf("Expected judge overall 8.5, got %v", artifact.JudgeOverall)
	}
	if len(artifact.Strengths) != 1 || artifact.Strengths[0] != "Small diff" {
		t.Errorf("Expected strengths from overall, got %v", artifact.Strengths)
	}
	if artifact.Extra["model"] != "judge-1" {
		t.Errorf("Expected unknown keys in Extra, got %v", artifact.Extra)
	}
}

func TestParseArtifact_YAML(t *testing.T) {
	data := []byte(`
repository: owner/project
pr_number: "12"
metrics:
  correctness:
    score: 7
    explanation: Handles the nil case
differences:
  - file: main.go
    status: both
    note: same approach
  - Uses a map instead of a slice
`)

	artifact, err := ParseArtifact(data, ArtifactFormatYAML)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if artifact.Metrics["correctness"].Score != 7 {
		t.Errorf("Expected int score 7, got %#v", artifact.Metrics["correctness"].Score)
	}
	if len(artifact.Differences) != 2 {
		t.Fatalf("Expected 2 differences, got %d", len(artifact.Differences))
	}
	if artifact.Differences[0].File != "main.go" || artifact.Differences[0].Note != "same approach" {
		t.Errorf("Unexpected first difference: %+v", artifact.Differences[0])
	}
	if artifact.Differences[1].Note != "Uses a map instead of a slice" {
		t.Errorf("Unexpected second difference: %+v", artifact.Differences[1])
	}
}

func TestParseArtifact_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   "},
		{"not json", "{not json"},
		{"array", "[1, 2]"},
		{"trailing data", `{"metrics": {}} {"metrics": {}}`},
		{"metrics not object", `{"metrics": [1, 2]}`},
		{"metric is list", `{"metrics": {"correctness": [8]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArtifact([]byte(tt.data), ArtifactFormatJSON); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParseArtifact_NonNumericScoreIsKept(t *testing.T) {
	artifact, err := ParseArtifact([]byte(`{"metrics": {"correctness": {"score": "eight"}}}`), ArtifactFormatJSON)
	if err != nil {
		t.Fatalf("Parser should leave score checks to the validator: %v", err)
	}
	if artifact.Metrics["correctness"].Score != "eight" {
		t.Errorf("Expected raw string score, got %#v", artifact.Metrics["correctness"].Score)
	}
}

func TestParseArtifactFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteArtifact(t, dir, "project_42_results.json", testutil.UniformScores(5))

	artifact, err := ParseArtifactFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if artifact.SourcePath != path {
		t.Errorf("Expected source path %s, got %s", path, artifact.SourcePath)
	}

	_, err = ParseArtifactFile(filepath.Join(dir, "missing.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	bad := testutil.WriteFile(t, dir, "bad.json", []byte("{"))
	_, err = ParseArtifactFile(bad)
	if err == nil || !strings.Contains(err.Error(), "PARSE_ERROR") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestArtifactFormatForPath(t *testing.T) {
	tests := map[string]ArtifactFormat{
		"a.json": ArtifactFormatJSON,
		"a.yaml": ArtifactFormatYAML,
		"a.YML":  ArtifactFormatYAML,
		"a":      ArtifactFormatJSON,
	}
	for path, want := range tests {
		if got := ArtifactFormatForPath(path); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}
