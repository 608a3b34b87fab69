package service

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/constants"
)

// InstructionRequest describes the pull request a judge is asked to evaluate
type InstructionRequest struct {
	Repository string
	PRNumber   string
	PRURL      string
	Diff       []byte

	// WorkDir receives the instructions directory
	WorkDir string

	// OutputDir is where the judge must write the artifact
	OutputDir string
}

// InstructionBundle lists the files written for the judge
type InstructionBundle struct {
	InstructionsPath string
	DiffPath         string
	ArtifactPath     string
}

// ExpectedArtifactPath returns <outputDir>/<repo name>_<pr>_results.json
func ExpectedArtifactPath(outputDir, repository, prNumber string) string {
	name := repository
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "evaluation"
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s%s", name, strings.TrimPrefix(prNumber, "#"), constants.ResultsFileSuffix))
}

type instructionData struct {
	Repository   string
	PRNumber     string
	PRURL        string
	HasDiff      bool
	DiffFile     string
	ArtifactPath string
	Metrics      []domain.MetricDefinition
	ScoreMin     string
	ScoreMax     string
}

var instructionFuncs = template.FuncMap{
	"num":    domain.FormatNumber,
	"pct":    FormatWeightPercent,
	"add":    func(a, b int) int { return a + b },
	"isLast": func(i int, defs []domain.MetricDefinition) bool { return i == len(defs)-1 },
	"sample": func(def domain.MetricDefinition) string {
		return domain.FormatNumber(def.ScoreMin + (def.ScoreMax-def.ScoreMin)*0.8)
	},
}

var instructionTemplate = template.Must(template.New("instructions").Funcs(instructionFuncs).Parse(instructionText))

// WriteInstructionBundle writes the judge instructions (and the diff, when given)
// into <WorkDir>/instructions
func WriteInstructionBundle(req InstructionRequest, schema *domain.MetricSchema) (*InstructionBundle, error) {
	if strings.TrimSpace(req.Repository) == "" {
		return nil, &domain.IncompleteContextError{Field: "repository"}
	}
	if strings.TrimSpace(req.PRNumber) == "" {
		return nil, &domain.IncompleteContextError{Field: "pr_number"}
	}
	if schema == nil {
		return nil, domain.NewInvalidInputError("metric schema is nil", nil)
	}

	prNumber := strings.TrimPrefix(req.PRNumber, "#")
	dir := filepath.Join(req.WorkDir, constants.InstructionsDirName)
	bundle := &InstructionBundle{
		InstructionsPath: filepath.Join(dir, constants.InstructionsFileName),
		ArtifactPath:     ExpectedArtifactPath(req.OutputDir, req.Repository, prNumber),
	}

	prURL := firstNonEmpty(req.PRURL, derivePRURL(req.Repository, prNumber))
	defs := schema.Metrics()
	data := instructionData{
		Repository:   req.Repository,
		PRNumber:     prNumber,
		PRURL:        prURL,
		HasDiff:      len(req.Diff) > 0,
		DiffFile:     constants.DiffFileName,
		ArtifactPath: bundle.ArtifactPath,
		Metrics:      defs,
	}

	if data.HasDiff {
		bundle.DiffPath = filepath.Join(dir, constants.DiffFileName)
		if err := writeFileAtomic(bundle.DiffPath, req.Diff); err != nil {
			return nil, fmt.Errorf("write diff: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := instructionTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}
	if err := writeFileAtomic(bundle.InstructionsPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write instructions: %w", err)
	}
	return bundle, nil
}

const instructionText = `# Bug Fix Evaluation

## Overview
You are evaluating a bug fix in a pull request. Score it on every metric below and
write the result as JSON to the path given under Output Format.

## Repository and PR Information
- Repository: {{.Repository}}
- PR Number: {{.PRNumber}}
{{- if .PRURL}}
- PR URL: {{.PRURL}}
{{- end}}

## Evaluation Metrics
{{range $i, $m := .Metrics}}
{{add $i 1}}. **{{$m.DisplayTitle}} ({{num $m.ScoreMin}}-{{num $m.ScoreMax}}, weight {{pct $m.Weight}})**: {{$m.Description}}
{{- end}}

## Steps to Follow
{{- if .HasDiff}}
1. Review the PR diff in the ` + "`{{.DiffFile}}`" + ` file next to these instructions.
{{- else}}
1. Review the changes of the pull request.
{{- end}}
2. Analyze the changes to understand the bug and the fix.
3. Score the fix on every metric above. Scores must be numbers inside the stated range.
4. List strengths and weaknesses of the fix.
5. Provide suggestions for improvement.

## Output Format
Save your evaluation as a JSON file at: ` + "`{{.ArtifactPath}}`" + `

Write the file in one step (for example write a temporary file and rename it) so a
partially written file is never read.

` + "```json" + `
{
  "repository": "{{.Repository}}",
  "pr_number": "{{.PRNumber}}",
  "metrics": {
{{- range $i, $m := .Metrics}}
    "{{$m.Name}}": {
      "score": {{sample $m}},
      "explanation": "...",
      "strength": "...",
      "weakness": "..."
    }{{if not (isLast $i $.Metrics)}},{{end}}
{{- end}}
  },
  "strengths": ["..."],
  "weaknesses": ["..."],
  "suggestions": ["..."]
}
` + "```" + `

## Additional Notes
- Every metric listed above is required. A missing or non-numeric score rejects the whole evaluation.
- Be specific in explanations, strengths, weaknesses and suggestions.
- The overall score is computed from the metric scores; do not compute it yourself.
`
