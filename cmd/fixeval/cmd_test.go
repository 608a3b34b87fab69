package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/fixeval/app"
	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/testutil"
)

// writeTestConfig writes a config that keeps every file inside dir
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf(`output:
  directory: %q
  formats: [json]
history:
  enabled: true
  path: %q
logging:
  level: error
`, filepath.Join(dir, "reports"), filepath.Join(dir, "history.db"))
	return testutil.WriteFile(t, dir, "fixeval.yaml", []byte(content))
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"evaluate", "report", "wait", "prepare", "history", "init", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Missing subcommand: %s", name)
		}
	}
}

func TestEvaluateCmd_FlagsExist(t *testing.T) {
	cmd := evaluateCmd()

	expectedFlags := []string{"config", "output", "format", "timeout", "interval", "settle",
		"repo", "pr", "pr-url", "reference-diff", "candidate-diff", "no-progress", "json", "no-wait"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}

	shortFlags := map[string]string{"c": "config", "o": "output", "f": "format"}
	for short, long := range shortFlags {
		if cmd.Flags().ShorthandLookup(short) == nil {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}

	if reportCmd().Flags().Lookup("no-wait") != nil {
		t.Error("report command should not expose --no-wait")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "fixeval version ") {
		t.Errorf("Unexpected version output: %q", out)
	}

	out, err = runRoot(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version --json is not JSON: %v\n%s", err, out)
	}
	if _, ok := info["version"]; !ok {
		t.Error("Expected a version field")
	}
}

func TestReportCmd_WritesReports(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	artifact := testutil.WriteArtifact(t, dir, "project_42_results.json", testutil.UniformScores(10))
	outDir := filepath.Join(dir, "out")

	out, err := runRoot(t, "report", artifact, "-c", cfgPath, "-o", outDir, "-f", "markdown,json", "--no-progress")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if code := exitCodeFor(err); code != ExitSuccess {
		t.Errorf("Expected exit code %d, got %d", ExitSuccess, code)
	}
	if !strings.Contains(out, "Evaluation: owner/project #42") {
		t.Errorf("Summary missing heading:\n%s", out)
	}
	for _, want := range []string{"100.0", "(grade A)", "Correctness"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}

	for _, pattern := range []string{"owner_project_PR42_*.md", "owner_project_PR42_*.json"} {
		matches, _ := filepath.Glob(filepath.Join(outDir, pattern))
		if len(matches) != 1 {
			t.Errorf("Expected one file matching %s, got %v", pattern, matches)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(outDir, "*.html")); len(matches) != 0 {
		t.Errorf("Unselected format was written: %v", matches)
	}
}

func TestReportCmd_JSONSummaryAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	artifact := testutil.WriteArtifact(t, dir, "project_42_results.json", testutil.UniformScores(10))

	out, err := runRoot(t, "report", artifact, "-c", cfgPath, "--json")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("Summary is not JSON: %v\n%s", err, out)
	}
	if summary.Status != string(domain.RunRendered) {
		t.Errorf("Expected status rendered, got %s", summary.Status)
	}
	if summary.OverallScore == nil || *summary.OverallScore != 100 {
		t.Errorf("Expected overall score 100, got %v", summary.OverallScore)
	}
	if summary.Grade != "A" {
		t.Errorf("Expected grade A, got %s", summary.Grade)
	}
	if len(summary.Reports) != 1 || filepath.Dir(summary.Reports[0]) != filepath.Join(dir, "reports") {
		t.Errorf("Expected one report in the configured directory, got %v", summary.Reports)
	}

	out, err = runRoot(t, "history", "-c", cfgPath, "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []historyEntry
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("History is not JSON: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 recorded run, got %d", len(records))
	}
	if records[0].Outcome != domain.RunRendered || records[0].Repository != "owner/project" {
		t.Errorf("Unexpected record: %+v", records[0])
	}
	if len(records[0].Reports) != 1 || records[0].Reports[0] != summary.Reports[0] {
		t.Errorf("Expected the written report in history, got %v", records[0].Reports)
	}
}

func TestHistoryCmd_Table(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	out, err := runRoot(t, "history", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("Expected empty history message, got %q", out)
	}

	artifact := testutil.WriteArtifact(t, dir, "project_42_results.json", testutil.UniformScores(10))
	if _, err := runRoot(t, "report", artifact, "-c", cfgPath, "--no-progress"); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	out, err = runRoot(t, "history", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"REPOSITORY", "REPORTS", "owner/project", "rendered", "100.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("History table missing %q:\n%s", want, out)
		}
	}
}

func TestReportCmd_InvalidArtifact(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	scores := testutil.UniformScores(8)
	scores["correctness"] = 11
	artifact := testutil.WriteArtifact(t, dir, "project_42_results.json", scores)

	out, err := runRoot(t, "report", artifact, "-c", cfgPath, "--json")
	if err == nil {
		t.Fatal("Expected an error for an out-of-range score")
	}
	if code := exitCodeFor(err); code != ExitFailure {
		t.Errorf("Expected exit code %d, got %d", ExitFailure, code)
	}

	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("Summary is not JSON: %v\n%s", err, out)
	}
	if summary.Status != string(domain.RunInvalid) {
		t.Errorf("Expected status invalid, got %s", summary.Status)
	}
	if summary.Stage != string(app.StageValidate) {
		t.Errorf("Expected stage validate, got %s", summary.Stage)
	}
	if len(summary.Reports) != 0 {
		t.Errorf("No report should be written, got %v", summary.Reports)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "reports", "*")); len(matches) != 0 {
		t.Errorf("No report should be written, got %v", matches)
	}
}

func TestEvaluateCmd_TimesOut(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	missing := filepath.Join(dir, "project_42_results.json")

	out, err := runRoot(t, "evaluate", missing, "-c", cfgPath,
		"--timeout", "100ms", "--interval", "20ms", "--settle", "0s", "--no-progress")
	if err == nil {
		t.Fatal("Expected a timeout error")
	}
	if code := exitCodeFor(err); code != ExitTimedOut {
		t.Errorf("Expected exit code %d, got %d (%v)", ExitTimedOut, code, err)
	}
	if !strings.Contains(out, "No artifact after 100ms") {
		t.Errorf("Summary should describe the timeout:\n%s", out)
	}
}

func TestEvaluateCmd_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	artifact := testutil.WriteArtifact(t, dir, "project_42_results.json", testutil.UniformScores(8))

	t.Run("missing config file", func(t *testing.T) {
		_, err := runRoot(t, "report", artifact, "-c", filepath.Join(dir, "nope.yaml"))
		if code := exitCodeFor(err); code != ExitConfig {
			t.Errorf("Expected exit code %d, got %d (%v)", ExitConfig, code, err)
		}
	})

	t.Run("weights not summing to one", func(t *testing.T) {
		cfgPath := testutil.WriteFile(t, dir, "bad.yaml", []byte(`metrics:
  weights:
    correctness: 0.5
`))
		_, err := runRoot(t, "report", artifact, "-c", cfgPath)
		if code := exitCodeFor(err); code != ExitConfig {
			t.Errorf("Expected exit code %d, got %d (%v)", ExitConfig, code, err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		cfgPath := writeTestConfig(t, dir)
		_, err := runRoot(t, "report", artifact, "-c", cfgPath, "-f", "pdf")
		if code := exitCodeFor(err); code != ExitConfig {
			t.Errorf("Expected exit code %d, got %d (%v)", ExitConfig, code, err)
		}
	})
}

func TestPrepareCmd_Quiet(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	resultsDir := filepath.Join(dir, "results")

	out, err := runRoot(t, "prepare", "--repo", "owner/project", "--pr", "42",
		"--work-dir", dir, "-o", resultsDir, "-c", cfgPath, "-q")
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	expected := filepath.Join(resultsDir, "project_42_results.json")
	if strings.TrimSpace(out) != expected {
		t.Errorf("Expected '%s', got '%s'", expected, strings.TrimSpace(out))
	}
	if _, err := os.Stat(filepath.Join(dir, "instructions", "bug_fix_evaluation.md")); err != nil {
		t.Errorf("Instructions were not written: %v", err)
	}
}

func TestPrepareCmd_RequiresRepo(t *testing.T) {
	_, err := runRoot(t, "prepare", "--pr", "42")
	if err == nil {
		t.Fatal("Expected an error without --repo")
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"configuration", domain.NewConfigError("bad weights", nil), ExitConfig},
		{"timeout", &app.StageError{Stage: app.StageWatch, Err: domain.ErrWatchTimedOut}, ExitTimedOut},
		{"cancelled", &app.StageError{Stage: app.StageWatch, Err: domain.ErrWatchCancelled}, ExitCancelled},
		{"explicit exit code", &ExitError{Code: ExitConfig, Message: "no output formats selected"}, ExitConfig},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: ExitTimedOut}), ExitTimedOut},
		{"render failure", &domain.RenderErrors{}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitError_Message(t *testing.T) {
	if got := (&ExitError{Code: 2, Message: "custom"}).Error(); got != "custom" {
		t.Errorf("Expected 'custom', got '%s'", got)
	}
	cause := errors.New("cause")
	e := newExitError(cause)
	if e.Error() != "cause" || !errors.Is(e, cause) {
		t.Errorf("Expected the cause to be wrapped, got %v", e)
	}
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Expected 'exit status 3', got '%s'", got)
	}
}

func TestNewHistoryEntries(t *testing.T) {
	entries := newHistoryEntries([]domain.RunRecord{
		{RunID: "a", ReportPaths: "r.html\nr.json"},
		{RunID: "b"},
	})
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if len(entries[0].Reports) != 2 || entries[0].Reports[1] != "r.json" {
		t.Errorf("Unexpected reports: %v", entries[0].Reports)
	}
	if entries[1].Reports == nil || len(entries[1].Reports) != 0 {
		t.Errorf("Expected an empty report list, got %v", entries[1].Reports)
	}
}
