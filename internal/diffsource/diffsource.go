// Package diffsource turns unified diffs from the pull request provider into
// per-file implementation differences for the report.
package diffsource

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/go-diff/diff"
)

// FileChange summarizes one file of a diff
type FileChange struct {
	Path      string
	Additions int
	Deletions int
	Created   bool
	Removed   bool
}

// ParseDiff reads a multi-file unified diff
func ParseDiff(data []byte) ([]FileChange, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []FileChange{}, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(data)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	changes := make([]FileChange, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		change := FileChange{
			Created: fd.OrigName == "/dev/null",
			Removed: fd.NewName == "/dev/null",
		}
		if change.Removed {
			change.Path = stripPrefix(fd.OrigName)
		} else {
			change.Path = stripPrefix(fd.NewName)
		}
		stat := fd.Stat()
		change.Additions = int(stat.Added + stat.Changed)
		change.Deletions = int(stat.Deleted + stat.Changed)
		changes = append(changes, change)
	}
	return changes, nil
}

// ParseDiffFile reads a unified diff from disk
func ParseDiffFile(path string) ([]FileChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	return ParseDiff(data)
}

// Comparer compares a reference diff with a candidate diff file by file
type Comparer struct {
	ignored *ignore.GitIgnore
}

// NewComparer creates a comparer hiding paths matching any gitignore-style pattern
func NewComparer(ignorePatterns []string) *Comparer {
	c := &Comparer{}
	if len(ignorePatterns) > 0 {
		c.ignored = ignore.CompileIgnoreLines(ignorePatterns...)
	}
	return c
}

// Compare returns one note per touched file, sorted by path. Counts are those of
// the candidate diff, or the reference diff for files the candidate missed.
func (c *Comparer) Compare(reference, candidate []FileChange) []domain.DifferenceNote {
	ref := c.index(reference)
	cand := c.index(candidate)

	paths := make([]string, 0, len(ref)+len(cand))
	for p := range ref {
		paths = append(paths, p)
	}
	for p := range cand {
		if _, ok := ref[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	notes := make([]domain.DifferenceNote, 0, len(paths))
	for _, p := range paths {
		r, inRef := ref[p]
		k, inCand := cand[p]
		switch {
		case inRef && inCand:
			notes = append(notes, domain.DifferenceNote{
				File:      p,
				Status:    domain.DifferenceBoth,
				Note:      describeBoth(r, k),
				Additions: k.Additions,
				Deletions: k.Deletions,
			})
		case inRef:
			notes = append(notes, domain.DifferenceNote{
				File:      p,
				Status:    domain.DifferenceReferenceOnly,
				Note:      "changed by the reference fix only",
				Additions: r.Additions,
				Deletions: r.Deletions,
			})
		default:
			notes = append(notes, domain.DifferenceNote{
				File:      p,
				Status:    domain.DifferenceCandidateOnly,
				Note:      "changed by the candidate fix only",
				Additions: k.Additions,
				Deletions: k.Deletions,
			})
		}
	}
	return notes
}

// CompareFiles parses two diff files and compares them. An empty path stands for
// an empty diff.
func (c *Comparer) CompareFiles(referencePath, candidatePath string) ([]domain.DifferenceNote, error) {
	var reference, candidate []FileChange
	var err error
	if referencePath != "" {
		if reference, err = ParseDiffFile(referencePath); err != nil {
			return nil, fmt.Errorf("reference diff: %w", err)
		}
	}
	if candidatePath != "" {
		if candidate, err = ParseDiffFile(candidatePath); err != nil {
			return nil, fmt.Errorf("candidate diff: %w", err)
		}
	}
	return c.Compare(reference, candidate), nil
}

func (c *Comparer) index(changes []FileChange) map[string]FileChange {
	out := make(map[string]FileChange, len(changes))
	for _, ch := range changes {
		if ch.Path == "" || c.isIgnored(ch.Path) {
			continue
		}
		if prev, ok := out[ch.Path]; ok {
			ch.Additions += prev.Additions
			ch.Deletions += prev.Deletions
		}
		out[ch.Path] = ch
	}
	return out
}

func (c *Comparer) isIgnored(path string) bool {
	return c.ignored != nil && c.ignored.MatchesPath(path)
}

func describeBoth(ref, cand FileChange) string {
	refTotal := ref.Additions + ref.Deletions
	candTotal := cand.Additions + cand.Deletions
	switch {
	case ref.Removed != cand.Removed:
		return "one fix deletes the file, the other edits it"
	case candTotal > 2*refTotal && refTotal > 0:
		return fmt.Sprintf("candidate change is much larger than the reference (%d vs %d lines)", candTotal, refTotal)
	case refTotal > 2*candTotal && candTotal > 0:
		return fmt.Sprintf("candidate change is much smaller than the reference (%d vs %d lines)", candTotal, refTotal)
	default:
		return fmt.Sprintf("comparable change size (%d vs %d lines)", candTotal, refTotal)
	}
}

func stripPrefix(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "\t"); i >= 0 {
		name = name[:i]
	}
	for _, p := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, p) {
			return name[len(p):]
		}
	}
	return name
}
