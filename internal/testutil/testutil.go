// Package testutil provides helper functions for testing fixeval components
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// DefaultMetricNames are the six metrics active without configuration, in order
var DefaultMetricNames = []string{
	"correctness",
	"completeness",
	"pattern_match",
	"cleanliness",
	"efficiency",
	"complexity",
}

// UniformScores scores every default metric with the same value
func UniformScores(score float64) map[string]float64 {
	scores := make(map[string]float64, len(DefaultMetricNames))
	for _, name := range DefaultMetricNames {
		scores[name] = score
	}
	return scores
}

// SampleArtifact builds an artifact document with the given metric scores
func SampleArtifact(repository, prNumber string, scores map[string]float64) map[string]any {
	metrics := make(map[string]any, len(scores))
	for name, score := range scores {
		metrics[name] = map[string]any{
			"score":       score,
			"explanation": "Explanation for " + name,
			"strength":    "Strength of " + name,
			"weakness":    "Weakness of " + name,
		}
	}
	return map[string]any{
		"repository":  repository,
		"pr_number":   prNumber,
		"metrics":     metrics,
		"strengths":   []string{"Fixes the root cause"},
		"weaknesses":  []string{"No regression test"},
		"suggestions": []string{"Add a test for the failing input"},
	}
}

// SampleArtifactJSON is SampleArtifact encoded as JSON
func SampleArtifactJSON(t *testing.T, repository, prNumber string, scores map[string]float64) []byte {
	t.Helper()
	data, err := json.MarshalIndent(SampleArtifact(repository, prNumber, scores), "", "  ")
	if err != nil {
		t.Fatalf("Failed to encode artifact: %v", err)
	}
	return data
}

// WriteFile writes content to dir/name and returns the path
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// WriteArtifact writes a sample JSON artifact into dir and returns its path
func WriteArtifact(t *testing.T, dir, name string, scores map[string]float64) string {
	t.Helper()
	return WriteFile(t, dir, name, SampleArtifactJSON(t, "owner/project", "42", scores))
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}
