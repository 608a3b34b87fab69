package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/constants"
)

// OutputFormatterImpl renders report models. Every format reads the same model and
// formats numbers through the helpers below, so formats never disagree.
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// Render returns the document for one format
func (f *OutputFormatterImpl) Render(model *domain.ReportModel, format domain.OutputFormat) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(model, format, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the model in the given format to the writer
func (f *OutputFormatterImpl) Write(model *domain.ReportModel, format domain.OutputFormat, writer io.Writer) error {
	if model == nil {
		return domain.NewInvalidInputError("report model is nil", nil)
	}
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, model)
	case domain.OutputFormatHTML:
		return f.WriteHTML(model, writer)
	case domain.OutputFormatMarkdown:
		return f.WriteMarkdown(model, writer)
	case domain.OutputFormatText:
		return f.WriteText(model, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WriteText writes the condensed plain-text report
func (f *OutputFormatterImpl) WriteText(model *domain.ReportModel, writer io.Writer) error {
	w := &errWriter{w: writer}
	rule := strings.Repeat("=", 60)

	w.printf("%s\n", rule)
	w.printf("%s\n", strings.ToUpper(constants.ReportTitle))
	w.printf("%s\n\n", rule)

	w.printf("Repository: %s\n", model.Repository)
	if model.HasPR() {
		w.printf("Pull Request: #%s\n", model.PRNumber)
	}
	if model.PRURL != "" {
		w.printf("URL: %s\n", model.PRURL)
	}
	w.printf("Generated: %s\n", FormatTimestamp(model))
	w.printf("Run ID: %s\n", model.RunID)

	w.printf("\n=== Overall Score ===\n\n")
	w.printf("  Score: %s / 100\n", FormatOverallScore(model.OverallScore))
	w.printf("  Grade: %s (%s)\n", model.Grade, domain.GradeDescription(model.Grade))
	if model.JudgeOverall != nil {
		w.printf("  Judge's own overall: %s\n", FormatRawScore(*model.JudgeOverall))
	}

	w.printf("\n=== Metrics ===\n")
	for _, m := range model.Metrics {
		w.printf("\n  %s: %s (weight %s, %s pts)\n",
			m.Title, FormatMetricScore(m), FormatWeightPercent(m.Weight), FormatPoints(m.WeightedContribution))
		writeTextField(w, "Explanation", m.Explanation)
		writeTextField(w, "Strength", m.Strength)
		writeTextField(w, "Weakness", m.Weakness)
		writeTextField(w, "Comparison", m.Comparison)
	}

	if len(model.AdditionalMetrics) > 0 {
		w.printf("\n=== Additional Metrics (not scored) ===\n\n")
		for _, m := range model.AdditionalMetrics {
			w.printf("  %s: %s\n", m.Name, FormatOptionalScore(m.Score))
		}
	}

	writeTextList(w, "Strengths", model.Strengths, "No significant strengths identified")
	writeTextList(w, "Weaknesses", model.Weaknesses, "No significant weaknesses identified")
	writeTextList(w, "Suggestions", model.Suggestions, "No suggestions provided")

	if len(model.Differences) > 0 {
		w.printf("\n=== Implementation Differences ===\n\n")
		for _, d := range model.Differences {
			w.printf("  - %s\n", FormatDifference(d))
		}
	}

	w.printf("\n%s\n", rule)
	return w.err
}

func writeTextField(w *errWriter, label, value string) {
	if value == "" {
		return
	}
	w.printf("    %s: %s\n", label, value)
}

func writeTextList(w *errWriter, title string, items []string, placeholder string) {
	w.printf("\n=== %s ===\n\n", title)
	if len(items) == 0 {
		w.printf("  %s\n", placeholder)
		return
	}
	for _, item := range items {
		w.printf("  - %s\n", item)
	}
}

// errWriter keeps the first write error so formatting code stays linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// FormatOverallScore formats the overall score to one decimal place
func FormatOverallScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// FormatRawScore formats a raw metric score with at most two decimals
func FormatRawScore(score float64) string {
	return strconv.FormatFloat(math.Round(score*100)/100, 'f', -1, 64)
}

// FormatMetricScore formats a raw score out of its own maximum, e.g. "8 / 10"
func FormatMetricScore(m domain.ReportMetric) string {
	return FormatRawScore(m.RawScore) + " / " + FormatRawScore(m.ScoreMax)
}

// FormatOptionalScore formats a score that may be absent
func FormatOptionalScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return FormatRawScore(*score)
}

// FormatWeightPercent formats a weight as an integer percentage, e.g. "30%"
func FormatWeightPercent(weight float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(weight*100)))
}

// FormatPoints formats a weighted contribution as points of the overall score
func FormatPoints(contribution float64) string {
	return strconv.FormatFloat(contribution*100, 'f', 1, 64)
}

// FormatTimestamp formats the report timestamp
func FormatTimestamp(model *domain.ReportModel) string {
	return model.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDifference formats one implementation difference on a single line
func FormatDifference(d domain.DifferenceNote) string {
	var parts []string
	if d.File != "" {
		parts = append(parts, d.File)
	}
	if d.Status != "" {
		parts = append(parts, "["+d.Status.Label()+"]")
	}
	if d.Additions > 0 || d.Deletions > 0 {
		parts = append(parts, fmt.Sprintf("+%d/-%d", d.Additions, d.Deletions))
	}
	head := strings.Join(parts, " ")
	switch {
	case head == "":
		return d.Note
	case d.Note == "":
		return head
	default:
		return head + ": " + d.Note
	}
}

// ScoreColor maps a normalized score onto the report colour bands
func ScoreColor(normalized float64) string {
	switch {
	case normalized >= 0.8:
		return "#2ecc71"
	case normalized >= 0.6:
		return "#3498db"
	case normalized >= 0.4:
		return "#f39c12"
	default:
		return "#e74c3c"
	}
}
