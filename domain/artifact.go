package domain

// RawMetric is one metric judgment as written by the judge. Score is left untyped
// until validation so a string or null score can be reported precisely.
type RawMetric struct {
	Score       any    `json:"score" yaml:"score"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Strength    string `json:"strength,omitempty" yaml:"strength,omitempty"`
	Weakness    string `json:"weakness,omitempty" yaml:"weakness,omitempty"`
	Comparison  string `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

// DifferenceStatus classifies a file in the implementation comparison
type DifferenceStatus string

const (
	// DifferenceBoth means both the reference and the candidate fix touched the file
	DifferenceBoth DifferenceStatus = "both"
	// DifferenceReferenceOnly means the candidate missed a file the reference changed
	DifferenceReferenceOnly DifferenceStatus = "reference_only"
	// DifferenceCandidateOnly means the candidate changed a file the reference did not
	DifferenceCandidateOnly DifferenceStatus = "candidate_only"
)

// Label returns a short human label for the status
func (s DifferenceStatus) Label() string {
	switch s {
	case DifferenceBoth:
		return "changed in both"
	case DifferenceReferenceOnly:
		return "missed"
	case DifferenceCandidateOnly:
		return "extra"
	default:
		return string(s)
	}
}

// DifferenceNote is one implementation difference. Notes from the judge are opaque
// text; notes from a diff provider also carry File, Status and line counts.
type DifferenceNote struct {
	File      string           `json:"file,omitempty" yaml:"file,omitempty"`
	Status    DifferenceStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Note      string           `json:"note,omitempty" yaml:"note,omitempty"`
	Additions int              `json:"additions,omitempty" yaml:"additions,omitempty"`
	Deletions int              `json:"deletions,omitempty" yaml:"deletions,omitempty"`
}

// RawEvaluationArtifact is the untrusted payload produced by the external judge
type RawEvaluationArtifact struct {
	Metrics map[string]RawMetric `json:"metrics" yaml:"metrics"`

	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	PRNumber   string `json:"pr_number,omitempty" yaml:"pr_number,omitempty"`
	PRURL      string `json:"pr_url,omitempty" yaml:"pr_url,omitempty"`

	// JudgeOverall is the judge's own overall score, kept for reference only
	JudgeOverall *float64 `json:"judge_overall,omitempty" yaml:"judge_overall,omitempty"`

	Strengths   []string         `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Weaknesses  []string         `json:"weaknesses,omitempty" yaml:"weaknesses,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Differences []DifferenceNote `json:"differences,omitempty" yaml:"differences,omitempty"`

	// Extra holds top-level fields this tool does not interpret
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`

	// SourcePath is the file the artifact was read from, if any
	SourcePath string `json:"-" yaml:"-"`
}
