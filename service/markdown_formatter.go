package service

import (
	"io"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/constants"
)

// WriteMarkdown writes the report as Markdown headings and lists
func (f *OutputFormatterImpl) WriteMarkdown(model *domain.ReportModel, writer io.Writer) error {
	w := &errWriter{w: writer}

	w.printf("# %s\n\n", constants.ReportTitle)
	w.printf("- **Repository:** %s\n", escapeMarkdown(model.Repository))
	if model.HasPR() {
		if model.PRURL != "" {
			w.printf("- **Pull Request:** [#%s](%s)\n", model.PRNumber, model.PRURL)
		} else {
			w.printf("- **Pull Request:** #%s\n", model.PRNumber)
		}
	}
	w.printf("- **Generated:** %s\n", FormatTimestamp(model))
	w.printf("- **Run ID:** `%s`\n\n", model.RunID)

	w.printf("## Overall Score\n\n")
	w.printf("**%s / 100** (grade %s: %s)\n\n",
		FormatOverallScore(model.OverallScore), model.Grade, domain.GradeDescription(model.Grade))
	if model.JudgeOverall != nil {
		w.printf("_Judge's own overall score: %s_\n\n", FormatRawScore(*model.JudgeOverall))
	}

	w.printf("## Metrics\n\n")
	w.printf("| Metric | Score | Weight | Points |\n")
	w.printf("|---|---:|---:|---:|\n")
	for _, m := range model.Metrics {
		w.printf("| %s | %s | %s | %s |\n",
			escapeMarkdown(m.Title), FormatMetricScore(m), FormatWeightPercent(m.Weight), FormatPoints(m.WeightedContribution))
	}
	w.printf("\n")

	for _, m := range model.Metrics {
		if !m.HasNarrative() && m.Description == "" {
			continue
		}
		w.printf("### %s (%s)\n\n", escapeMarkdown(m.Title), FormatMetricScore(m))
		if m.Description != "" {
			w.printf("_%s_\n\n", escapeMarkdown(m.Description))
		}
		writeMarkdownField(w, "Explanation", m.Explanation)
		writeMarkdownField(w, "Strength", m.Strength)
		writeMarkdownField(w, "Weakness", m.Weakness)
		writeMarkdownField(w, "Comparison", m.Comparison)
		w.printf("\n")
	}

	if len(model.AdditionalMetrics) > 0 {
		w.printf("## Additional Metrics\n\n")
		w.printf("Reported by the judge but not part of the overall score.\n\n")
		for _, m := range model.AdditionalMetrics {
			w.printf("- **%s:** %s", escapeMarkdown(m.Name), FormatOptionalScore(m.Score))
			if m.Explanation != "" {
				w.printf(" - %s", escapeMarkdown(m.Explanation))
			}
			w.printf("\n")
		}
		w.printf("\n")
	}

	writeMarkdownList(w, "Strengths", model.Strengths, "No significant strengths identified.")
	writeMarkdownList(w, "Weaknesses", model.Weaknesses, "No significant weaknesses identified.")
	writeMarkdownList(w, "Suggestions", model.Suggestions, "No suggestions provided.")

	if len(model.Differences) > 0 {
		w.printf("## Implementation Differences\n\n")
		for _, d := range model.Differences {
			w.printf("- %s\n", escapeMarkdown(FormatDifference(d)))
		}
		w.printf("\n")
	}

	return w.err
}

func writeMarkdownField(w *errWriter, label, value string) {
	if value == "" {
		return
	}
	w.printf("- **%s:** %s\n", label, escapeMarkdown(value))
}

func writeMarkdownList(w *errWriter, title string, items []string, placeholder string) {
	w.printf("## %s\n\n", title)
	if len(items) == 0 {
		w.printf("_%s_\n\n", placeholder)
		return
	}
	for _, item := range items {
		w.printf("- %s\n", escapeMarkdown(item))
	}
	w.printf("\n")
}

var markdownEscaper = strings.NewReplacer("|", "\\|", "\n", " ", "\r", "")

// escapeMarkdown keeps judge text from breaking tables and list items
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
