package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ludo-technologies/fixeval/app"
	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/service"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	metricNameStyle = lipgloss.NewStyle().Width(16)
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func scoreStyle(normalized float64) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(service.ScoreColor(normalized)))
}

// printSummary prints a short human summary of a run
func printSummary(w io.Writer, result *app.EvaluateResult, runErr error) {
	var sb strings.Builder

	if result != nil && result.Report != nil {
		model := result.Report
		heading := model.Repository
		if model.HasPR() {
			heading += " #" + model.PRNumber
		}
		sb.WriteString(titleStyle.Render("Evaluation: "+heading) + "\n")
		sb.WriteString(fmt.Sprintf("%s %s / 100 (grade %s)\n",
			labelStyle.Render("Overall:"),
			scoreStyle(model.OverallScore/100).Render(service.FormatOverallScore(model.OverallScore)),
			model.Grade))
		for _, m := range model.Metrics {
			sb.WriteString(fmt.Sprintf("  %s %s  %s  %s pts\n",
				metricNameStyle.Render(m.Title),
				scoreStyle(m.Normalized).Render(service.FormatMetricScore(m)),
				labelStyle.Render("weight "+service.FormatWeightPercent(m.Weight)),
				service.FormatPoints(m.WeightedContribution)))
		}
	} else if result != nil && result.Validated != nil {
		sb.WriteString(titleStyle.Render("Artifact is valid") + "\n")
		sb.WriteString(fmt.Sprintf("%s %s / 100\n",
			labelStyle.Render("Overall:"),
			scoreStyle(result.Score.OverallScore/100).Render(service.FormatOverallScore(result.Score.OverallScore))))
	}

	if result != nil && len(result.Paths) > 0 {
		sb.WriteString(labelStyle.Render("Reports:") + "\n")
		for _, p := range result.Paths {
			sb.WriteString("  " + p + "\n")
		}
	}
	if result != nil && len(result.Published) > 0 {
		sb.WriteString(labelStyle.Render("Published:") + "\n")
		for _, ref := range result.Published {
			sb.WriteString("  " + ref + "\n")
		}
	}

	if runErr != nil {
		sb.WriteString(errorStyle.Render(describeFailure(result, runErr)) + "\n")
	}

	fmt.Fprint(w, sb.String())
}

func describeFailure(result *app.EvaluateResult, err error) string {
	var renderErrs *domain.RenderErrors
	switch {
	case errors.Is(err, domain.ErrWatchTimedOut):
		if result != nil && result.Session != nil {
			return fmt.Sprintf("No artifact after %s (%d checks)", result.Session.Timeout, result.Session.Polls)
		}
		return "Timed out waiting for the artifact"
	case errors.Is(err, domain.ErrWatchCancelled):
		return "Cancelled while waiting for the artifact"
	case errors.As(err, &renderErrs):
		names := make([]string, 0, len(renderErrs.Errors))
		for _, f := range renderErrs.Formats() {
			names = append(names, string(f))
		}
		return "Failed formats: " + strings.Join(names, ", ")
	default:
		return "Evaluation failed: " + err.Error()
	}
}

// runSummary is the machine-readable form of printSummary
type runSummary struct {
	Status        string                `json:"status"`
	Stage         string                `json:"stage,omitempty"`
	Error         string                `json:"error,omitempty"`
	WatchStatus   string                `json:"watch_status,omitempty"`
	Polls         int                   `json:"polls,omitempty"`
	OverallScore  *float64              `json:"overall_score,omitempty"`
	Grade         string                `json:"grade,omitempty"`
	Reports       []string              `json:"reports"`
	Published     []string              `json:"published,omitempty"`
	FailedFormats []domain.OutputFormat `json:"failed_formats,omitempty"`
}

func newRunSummary(result *app.EvaluateResult, runErr error) runSummary {
	s := runSummary{Status: string(app.OutcomeFor(runErr)), Reports: []string{}}
	if runErr != nil {
		s.Error = runErr.Error()
		var stageErr *app.StageError
		if errors.As(runErr, &stageErr) {
			s.Stage = string(stageErr.Stage)
		}
		var renderErrs *domain.RenderErrors
		if errors.As(runErr, &renderErrs) {
			s.FailedFormats = renderErrs.Formats()
		}
	}
	if result == nil {
		return s
	}
	if result.Session != nil {
		s.WatchStatus = result.Session.Status.String()
		s.Polls = result.Session.Polls
	}
	if result.Report != nil {
		score := result.Report.OverallScore
		s.OverallScore = &score
		s.Grade = result.Report.Grade
	} else if result.Validated != nil {
		score := result.Score.OverallScore
		s.OverallScore = &score
	}
	if result.Paths != nil {
		s.Reports = result.Paths
	}
	s.Published = result.Published
	return s
}
