package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ludo-technologies/fixeval/domain"
)

var contextValidator = validator.New()

// ReportBuilder assembles report models. It holds no state besides the clock and
// ID source, which tests replace.
type ReportBuilder struct {
	schema *domain.MetricSchema
	now    func() time.Time
	newID  func() string
}

// NewReportBuilder creates a builder for reports over the given schema
func NewReportBuilder(schema *domain.MetricSchema) *ReportBuilder {
	return &ReportBuilder{
		schema: schema,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithClock sets the time source used when the context has no timestamp
func (b *ReportBuilder) WithClock(now func() time.Time) *ReportBuilder {
	b.now = now
	return b
}

// Build merges the validated result, its aggregate and the caller context into a
// report model. Caller context wins over the artifact's own fields. Narrative text
// is copied verbatim.
func (b *ReportBuilder) Build(
	result *domain.ValidatedResult,
	score domain.AggregatedScore,
	ctx domain.ReportContext,
) (*domain.ReportModel, error) {
	if result == nil {
		return nil, domain.NewInvalidInputError("validated result is nil", nil)
	}
	if err := contextValidator.Struct(ctx); err != nil {
		return nil, domain.NewInvalidInputError("invalid report context", err)
	}

	artifact := result.Artifact
	repository := firstNonEmpty(ctx.Repository, artifact.Repository)
	if strings.TrimSpace(repository) == "" {
		return nil, &domain.IncompleteContextError{Field: "repository"}
	}
	prNumber := strings.TrimPrefix(firstNonEmpty(ctx.PRNumber, artifact.PRNumber), "#")

	generatedAt := ctx.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = b.now()
	}
	runID := ctx.RunID
	if runID == "" {
		runID = b.newID()
	}

	model := &domain.ReportModel{
		SchemaVersion: domain.ReportSchemaVersion,
		RunID:         runID,
		Repository:    repository,
		PRNumber:      prNumber,
		PRURL:         firstNonEmpty(ctx.PRURL, artifact.PRURL, derivePRURL(repository, prNumber)),
		GeneratedAt:   generatedAt.UTC(),
		OverallScore:  score.OverallScore,
		Grade:         domain.ScoreToGrade(score.OverallScore),
		Metrics:       make([]domain.ReportMetric, 0, len(score.PerMetric)),
		Strengths:     copyStrings(artifact.Strengths),
		Weaknesses:    copyStrings(artifact.Weaknesses),
		Suggestions:   copyStrings(artifact.Suggestions),
		Differences:   make([]domain.DifferenceNote, 0, len(artifact.Differences)+len(ctx.Differences)),
	}

	if artifact.JudgeOverall != nil {
		judge := *artifact.JudgeOverall
		model.JudgeOverall = &judge
	}

	for _, c := range score.PerMetric {
		metric := domain.ReportMetric{
			Name:                 c.Name,
			Title:                c.Name,
			RawScore:             c.RawScore,
			ScoreMin:             c.ScoreMin,
			ScoreMax:             c.ScoreMax,
			Weight:               c.Weight,
			Normalized:           c.Normalized,
			WeightedContribution: c.WeightedContribution,
		}
		if b.schema != nil {
			if def, ok := b.schema.Lookup(c.Name); ok {
				metric.Title = def.DisplayTitle()
				metric.Description = def.Description
			}
		}
		if ms, ok := result.Score(c.Name); ok {
			metric.Explanation = ms.Explanation
			metric.Strength = ms.Strength
			metric.Weakness = ms.Weakness
			metric.Comparison = ms.Comparison
		}
		model.Metrics = append(model.Metrics, metric)
	}

	model.AdditionalMetrics = buildAdditionalMetrics(result.ExtraMetrics)

	model.Differences = append(model.Differences, artifact.Differences...)
	model.Differences = append(model.Differences, ctx.Differences...)

	return model, nil
}

func buildAdditionalMetrics(extra map[string]domain.RawMetric) []domain.AdditionalMetric {
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.AdditionalMetric, 0, len(names))
	for _, name := range names {
		raw := extra[name]
		m := domain.AdditionalMetric{
			Name:        name,
			Explanation: raw.Explanation,
			Strength:    raw.Strength,
			Weakness:    raw.Weakness,
			Comparison:  raw.Comparison,
		}
		if score, ok := toFloat(raw.Score); ok {
			m.Score = &score
		}
		out = append(out, m)
	}
	return out
}

// derivePRURL builds a GitHub pull request URL for owner/name repositories
func derivePRURL(repository, prNumber string) string {
	if prNumber == "" {
		return ""
	}
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.ContainsAny(repository, " :") {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/pull/%s", repository, prNumber)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// copyStrings copies a list, returning an empty non-nil slice for nil input
func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
