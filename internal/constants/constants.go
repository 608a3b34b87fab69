package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "fixeval"

	// ConfigFileName is the default config file name
	ConfigFileName = "fixeval.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "FIXEVAL"

	// ReportTitle heads every rendered report
	ReportTitle = "Bug Fix Evaluation Report"
)

// Judge instruction bundle layout
const (
	InstructionsDirName  = "instructions"
	InstructionsFileName = "bug_fix_evaluation.md"
	DiffFileName         = "pr_diff.diff"
	ResultsFileSuffix    = "_results.json"
)

// Output format constants
const (
	OutputFormatJSON     = "json"
	OutputFormatHTML     = "html"
	OutputFormatMarkdown = "markdown"
	OutputFormatText     = "text"
)
