package validation

import (
	"fmt"
	"sort"

	"github.com/asakaida/ifcheck/internal/entities"
)

// Report is the merged outcome of one file's validation. Issues are held in
// their final deterministic order: ascending entity id, structural before
// express for the same entity, detection order within a layer.
type Report struct {
	Issues   []entities.ValidationIssue
	Errors   int
	Warnings int
}

// Assemble merges the structural and express issue streams into a report.
// The inputs may come from concurrent shards in any interleaving; the stable
// sort here is what makes repeated runs byte-identical.
func Assemble(structural, express []entities.ValidationIssue) *Report {
	issues := make([]entities.ValidationIssue, 0, len(structural)+len(express))
	issues = append(issues, structural...)
	issues = append(issues, express...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].EntityID != issues[j].EntityID {
			return issues[i].EntityID < issues[j].EntityID
		}
		return issues[i].Source < issues[j].Source
	})

	r := &Report{Issues: issues}
	for _, issue := range issues {
		switch issue.Severity {
		case entities.SeverityError:
			r.Errors++
		case entities.SeverityWarning:
			r.Warnings++
		}
	}
	return r
}

// Valid reports whether the file passed without errors. Warnings alone do
// not fail a file.
func (r *Report) Valid() bool {
	return r.Errors == 0
}

// Summary returns the one-line issue count
func (r *Report) Summary() string {
	return fmt.Sprintf("%d errors, %d warnings", r.Errors, r.Warnings)
}

// Render produces the report body lines. When maxIssues is positive and the
// report holds more findings, the tail is replaced by a single count line so
// huge files cannot flood the output.
func (r *Report) Render(maxIssues int) []string {
	lines := []string{"summary: " + r.Summary()}
	shown := len(r.Issues)
	if maxIssues > 0 && shown > maxIssues {
		shown = maxIssues
	}
	for i := 0; i < shown; i++ {
		lines = append(lines, "- "+r.Issues[i].String())
	}
	if rest := len(r.Issues) - shown; rest > 0 {
		lines = append(lines, fmt.Sprintf("- ... and %d more findings", rest))
	}
	return lines
}
