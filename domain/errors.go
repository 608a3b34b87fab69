package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeParseError        = "PARSE_ERROR"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeMissingMetric     = "MISSING_METRIC"
	ErrCodeInvalidScore      = "INVALID_SCORE"
	ErrCodeScoreOutOfRange   = "SCORE_OUT_OF_RANGE"
	ErrCodeIncompleteContext = "INCOMPLETE_CONTEXT"
	ErrCodeRenderError       = "RENDER_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// Sentinel errors callers branch on with errors.Is
var (
	// ErrMalformedArtifact marks every structural artifact failure (missing metric,
	// non-numeric score, out-of-range score). Waiting longer cannot fix these.
	ErrMalformedArtifact = errors.New("malformed evaluation artifact")

	// ErrArtifactUnreadable is returned when the artifact exists but cannot be parsed.
	ErrArtifactUnreadable = errors.New("evaluation artifact could not be parsed")

	// ErrWatchTimedOut is returned when no artifact appeared before the deadline.
	ErrWatchTimedOut = errors.New("timed out waiting for evaluation artifact")

	// ErrWatchCancelled is returned when the wait was cancelled by the caller.
	ErrWatchCancelled = errors.New("wait for evaluation artifact was cancelled")
)

// DomainError is the generic coded error used across the domain
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e DomainError) Error() string {
	return formatCoded(e.Code, e.Message, e.Cause)
}

// Unwrap returns the cause
func (e DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{Code: code, Message: message, Cause: cause}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewParseError creates a parse error for an artifact
func NewParseError(path string, cause error) error {
	return NewDomainError(ErrCodeParseError, fmt.Sprintf("failed to parse %s", path), cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported output format: %s", format), nil)
}

// ConfigurationError reports an invalid metric schema or configuration value.
// It is fatal: the process should stop before any artifact is read.
type ConfigurationError struct {
	Message string
	Cause   error
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{Message: message, Cause: cause}
}

func (e *ConfigurationError) Error() string {
	return formatCoded(ErrCodeConfigError, e.Message, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// MissingMetricError names an active metric that the artifact did not score
type MissingMetricError struct {
	Metric string
}

func (e *MissingMetricError) Error() string {
	return formatCoded(ErrCodeMissingMetric, fmt.Sprintf("metric %q is missing from the artifact", e.Metric), nil)
}

func (e *MissingMetricError) Unwrap() error {
	return ErrMalformedArtifact
}

// InvalidScoreError reports a score that is not a finite number
type InvalidScoreError struct {
	Metric string
	Value  any
}

func (e *InvalidScoreError) Error() string {
	return formatCoded(ErrCodeInvalidScore,
		fmt.Sprintf("metric %q has non-numeric score %v (%T)", e.Metric, e.Value, e.Value), nil)
}

func (e *InvalidScoreError) Unwrap() error {
	return ErrMalformedArtifact
}

// ScoreOutOfRangeError reports a score outside [Min, Max]. Bound is the limit that was crossed.
type ScoreOutOfRangeError struct {
	Metric string
	Value  float64
	Bound  float64
	Min    float64
	Max    float64
}

func (e *ScoreOutOfRangeError) Error() string {
	relation := "above maximum"
	if e.Value < e.Bound {
		relation = "below minimum"
	}
	return formatCoded(ErrCodeScoreOutOfRange,
		fmt.Sprintf("metric %q score %s is %s %s (valid range [%s, %s])",
			e.Metric, FormatNumber(e.Value), relation, FormatNumber(e.Bound),
			FormatNumber(e.Min), FormatNumber(e.Max)), nil)
}

func (e *ScoreOutOfRangeError) Unwrap() error {
	return ErrMalformedArtifact
}

// IncompleteContextError reports a context field every renderer needs
type IncompleteContextError struct {
	Field string
}

func (e *IncompleteContextError) Error() string {
	return formatCoded(ErrCodeIncompleteContext, fmt.Sprintf("report context is missing %s", e.Field), nil)
}

// RenderError reports a failure to produce or write one output format
type RenderError struct {
	Format OutputFormat
	Path   string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("failed to render %s report", e.Format)
	if e.Path != "" {
		msg = fmt.Sprintf("failed to render %s report to %s", e.Format, e.Path)
	}
	return formatCoded(ErrCodeRenderError, msg, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderErrors collects every per-format render failure of one write call
type RenderErrors struct {
	Errors []*RenderError
}

func (e *RenderErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no render errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d formats failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes every failure to errors.Is/As
func (e *RenderErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Formats returns the formats that failed, in order
func (e *RenderErrors) Formats() []OutputFormat {
	formats := make([]OutputFormat, len(e.Errors))
	for i, err := range e.Errors {
		formats[i] = err.Format
	}
	return formats
}

func formatCoded(code, message string, cause error) string {
	if cause != nil {
		return fmt.Sprintf("[%s] %s: %v", code, message, cause)
	}
	return fmt.Sprintf("[%s] %s", code, message)
}
