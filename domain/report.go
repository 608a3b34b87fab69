package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReportSchemaVersion is written into every JSON report
const ReportSchemaVersion = "1.0"

// OutputFormat represents the supported report formats
type OutputFormat string

const (
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatHTML     OutputFormat = "html"
	OutputFormatMarkdown OutputFormat = "markdown"
	OutputFormatText     OutputFormat = "text"
)

// AllOutputFormats lists every format in canonical order
func AllOutputFormats() []OutputFormat {
	return []OutputFormat{OutputFormatJSON, OutputFormatHTML, OutputFormatMarkdown, OutputFormatText}
}

// Extension returns the file extension for the format, including the dot
func (f OutputFormat) Extension() string {
	switch f {
	case OutputFormatJSON:
		return ".json"
	case OutputFormatHTML:
		return ".html"
	case OutputFormatMarkdown:
		return ".md"
	case OutputFormatText:
		return ".txt"
	default:
		return ""
	}
}

// ParseOutputFormat accepts a format name or one of its common aliases
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return OutputFormatJSON, nil
	case "html", "htm":
		return OutputFormatHTML, nil
	case "markdown", "md":
		return OutputFormatMarkdown, nil
	case "text", "txt", "plain":
		return OutputFormatText, nil
	default:
		return "", NewUnsupportedFormatError(s)
	}
}

// ParseOutputFormats parses a list of names, dropping duplicates but keeping order
func ParseOutputFormats(names []string) ([]OutputFormat, error) {
	seen := make(map[OutputFormat]bool, len(names))
	formats := make([]OutputFormat, 0, len(names))
	for _, name := range names {
		f, err := ParseOutputFormat(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// ReportContext is caller-supplied metadata for a report
type ReportContext struct {
	Repository  string    `validate:"omitempty,max=256"`
	PRNumber    string    `validate:"omitempty,max=64"`
	PRURL       string    `validate:"omitempty,url"`
	RunID       string    `validate:"omitempty,uuid"`
	GeneratedAt time.Time
	Differences []DifferenceNote
}

// ReportMetric is one active metric row in a report
type ReportMetric struct {
	Name                 string  `json:"name"`
	Title                string  `json:"title"`
	Description          string  `json:"description,omitempty"`
	RawScore             float64 `json:"raw_score"`
	ScoreMin             float64 `json:"score_min"`
	ScoreMax             float64 `json:"score_max"`
	Weight               float64 `json:"weight"`
	Normalized           float64 `json:"normalized"`
	WeightedContribution float64 `json:"weighted_contribution"`
	Explanation          string  `json:"explanation,omitempty"`
	Strength             string  `json:"strength,omitempty"`
	Weakness             string  `json:"weakness,omitempty"`
	Comparison           string  `json:"comparison,omitempty"`
}

// HasNarrative reports whether any narrative sub-field is set
func (m ReportMetric) HasNarrative() bool {
	return m.Explanation != "" || m.Strength != "" || m.Weakness != "" || m.Comparison != ""
}

// AdditionalMetric is a judged metric outside the active schema
type AdditionalMetric struct {
	Name        string   `json:"name"`
	Score       *float64 `json:"score,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Strength    string   `json:"strength,omitempty"`
	Weakness    string   `json:"weakness,omitempty"`
	Comparison  string   `json:"comparison,omitempty"`
}

// ReportModel is the canonical, renderer-independent view of one evaluation run
type ReportModel struct {
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Repository    string    `json:"repository"`
	PRNumber      string    `json:"pr_number,omitempty"`
	PRURL         string    `json:"pr_url,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`

	OverallScore float64  `json:"overall_score"`
	Grade        string   `json:"grade"`
	JudgeOverall *float64 `json:"judge_overall,omitempty"`

	Metrics           []ReportMetric     `json:"metrics"`
	AdditionalMetrics []AdditionalMetric `json:"additional_metrics"`

	Strengths   []string         `json:"strengths"`
	Weaknesses  []string         `json:"weaknesses"`
	Suggestions []string         `json:"suggestions"`
	Differences []DifferenceNote `json:"differences"`
}

// HasPR reports whether the report is tied to a pull request
func (m *ReportModel) HasPR() bool {
	return m.PRNumber != ""
}

// BaseFileName returns the extension-less report file name. It only depends on the
// model, so rendering the same model twice targets the same files.
func (m *ReportModel) BaseFileName() string {
	timestamp := m.GeneratedAt.UTC().Format("20060102_150405")
	if m.Repository != "" && m.PRNumber != "" {
		return fmt.Sprintf("%s_PR%s_%s", safeFileComponent(m.Repository), safeFileComponent(m.PRNumber), timestamp)
	}
	return fmt.Sprintf("evaluation_report_%s", timestamp)
}

// safeFileComponent replaces every rune outside [A-Za-z0-9._-] with '_', so values
// taken from an artifact can never add a path element
func safeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}

// Score thresholds for grades, on the 0-100 overall scale
const (
	GradeThresholdA = 90.0
	GradeThresholdB = 80.0
	GradeThresholdC = 70.0
	GradeThresholdD = 60.0
)

// ScoreToGrade converts an overall score to a letter grade
func ScoreToGrade(score float64) string {
	switch {
	case score >= GradeThresholdA:
		return "A"
	case score >= GradeThresholdB:
		return "B"
	case score >= GradeThresholdC:
		return "C"
	case score >= GradeThresholdD:
		return "D"
	default:
		return "F"
	}
}

// GradeDescription returns a human-readable description of a grade
func GradeDescription(grade string) string {
	descriptions := map[string]string{
		"A": "Excellent fix",
		"B": "Good fix, minor improvements possible",
		"C": "Acceptable fix with some issues",
		"D": "Below standard, significant issues",
		"F": "Failing, the fix needs rework",
	}
	if desc, ok := descriptions[grade]; ok {
		return desc
	}
	return "Unknown grade"
}
