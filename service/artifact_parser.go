package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	"gopkg.in/yaml.v3"
)

// ArtifactFormat is the serialization of an artifact file
type ArtifactFormat string

const (
	ArtifactFormatJSON ArtifactFormat = "json"
	ArtifactFormatYAML ArtifactFormat = "yaml"
)

// ArtifactFormatForPath picks the format from the file extension, defaulting to JSON
func ArtifactFormatForPath(path string) ArtifactFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ArtifactFormatYAML
	default:
		return ArtifactFormatJSON
	}
}

// knownArtifactKeys are the top-level keys interpreted by the parser
var knownArtifactKeys = map[string]bool{
	"metrics":     true,
	"criteria":    true,
	"repository":  true,
	"repo_name":   true,
	"pr_number":   true,
	"pr_url":      true,
	"overall":     true,
	"strengths":   true,
	"weaknesses":  true,
	"suggestions": true,
	"differences": true,
}

// ParseArtifactFile reads and parses an artifact file
func ParseArtifactFile(path string) (*domain.RawEvaluationArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	artifact, err := ParseArtifact(data, ArtifactFormatForPath(path))
	if err != nil {
		return nil, domain.NewParseError(path, err)
	}
	artifact.SourcePath = path
	return artifact, nil
}

// ParseArtifact parses artifact bytes. Only the document shape is checked here;
// metric presence and score ranges are the validator's job.
func ParseArtifact(data []byte, format ArtifactFormat) (*domain.RawEvaluationArtifact, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("artifact is empty")
	}

	var doc map[string]any
	switch format {
	case ArtifactFormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, errors.New("invalid JSON: unexpected data after the top-level object")
		}
	}
	if doc == nil {
		return nil, errors.New("artifact must be an object")
	}

	return buildArtifact(doc)
}

func buildArtifact(doc map[string]any) (*domain.RawEvaluationArtifact, error) {
	artifact := &domain.RawEvaluationArtifact{
		Metrics: make(map[string]domain.RawMetric),
		Extra:   make(map[string]any),
	}

	rawMetrics, ok := doc["metrics"]
	if !ok {
		rawMetrics = doc["criteria"]
	}
	if rawMetrics != nil {
		metrics, ok := rawMetrics.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("metrics must be an object, got %T", rawMetrics)
		}
		for name, entry := range metrics {
			metric, err := buildMetric(name, entry)
			if err != nil {
				return nil, err
			}
			artifact.Metrics[name] = metric
		}
	}

	repo := asText(doc["repository"])
	if repo == "" {
		repo = asText(doc["repo_name"])
	}
	artifact.Repository = repo
	artifact.PRNumber = asText(doc["pr_number"])
	artifact.PRURL = asText(doc["pr_url"])

	artifact.Strengths = asTextList(doc["strengths"])
	artifact.Weaknesses = asTextList(doc["weaknesses"])
	artifact.Suggestions = asTextList(doc["suggestions"])

	switch overall := doc["overall"].(type) {
	case nil:
	case map[string]any:
		if score, ok := toFloat(overall["score"]); ok {
			artifact.JudgeOverall = &score
		}
		if len(artifact.Strengths) == 0 {
			artifact.Strengths = asTextList(overall["strengths"])
		}
		if len(artifact.Weaknesses) == 0 {
			artifact.Weaknesses = asTextList(overall["weaknesses"])
		}
		if len(artifact.Suggestions) == 0 {
			artifact.Suggestions = asTextList(overall["suggestions"])
		}
	default:
		if score, ok := toFloat(overall); ok {
			artifact.JudgeOverall = &score
		}
	}

	diffs, err := buildDifferences(doc["differences"])
	if err != nil {
		return nil, err
	}
	artifact.Differences = diffs

	for key, value := range doc {
		if !knownArtifactKeys[key] {
			artifact.Extra[key] = value
		}
	}

	return artifact, nil
}

func buildMetric(name string, entry any) (domain.RawMetric, error) {
	switch v := entry.(type) {
	case map[string]any:
		return domain.RawMetric{
			Score:       v["score"],
			Explanation: asText(v["explanation"]),
			Strength:    asText(v["strength"]),
			Weakness:    asText(v["weakness"]),
			Comparison:  asText(v["comparison"]),
		}, nil
	case []any:
		return domain.RawMetric{}, fmt.Errorf("metric %q must be an object, got a list", name)
	default:
		// A bare score without narrative; the validator decides if it is numeric
		return domain.RawMetric{Score: v}, nil
	}
}

func buildDifferences(raw any) ([]domain.DifferenceNote, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if s, ok := raw.(string); ok {
			return []domain.DifferenceNote{{Note: s}}, nil
		}
		return nil, fmt.Errorf("differences must be a list, got %T", raw)
	}

	notes := make([]domain.DifferenceNote, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			notes = append(notes, domain.DifferenceNote{Note: v})
		case map[string]any:
			note := asText(v["note"])
			if note == "" {
				note = asText(v["description"])
			}
			notes = append(notes, domain.DifferenceNote{
				File:   asText(v["file"]),
				Status: domain.DifferenceStatus(asText(v["status"])),
				Note:   note,
			})
		default:
			notes = append(notes, domain.DifferenceNote{Note: fmt.Sprint(v)})
		}
	}
	return notes, nil
}

// toFloat converts a decoded JSON or YAML scalar to a finite float64
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func asTextList(v any) []string {
	switch items := v.(type) {
	case nil:
		return nil
	case string:
		if items == "" {
			return nil
		}
		return []string{items}
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := asText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{asText(items)}
	}
}
