package entities

import "fmt"

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// IssueSource identifies which rule layer produced an issue. Structural
// issues sort before express issues for the same entity.
type IssueSource int

const (
	SourceStructural IssueSource = iota
	SourceExpress
)

// GlobalEntity is the entity id used for schema-global issues.
const GlobalEntity int64 = 0

// ValidationIssue records one failed check. Issues are append-only during a
// validation pass and never mutated after creation.
type ValidationIssue struct {
	Severity Severity
	EntityID int64 // GlobalEntity when not tied to a concrete instance
	Check    string
	Message  string
	Source   IssueSource
}

// String renders the issue in the report line format.
func (i *ValidationIssue) String() string {
	if i.EntityID == GlobalEntity {
		return fmt.Sprintf("[%s] (check=%s) %s", i.Severity, i.Check, i.Message)
	}
	return fmt.Sprintf("[%s] (check=%s, instance=#%d) %s", i.Severity, i.Check, i.EntityID, i.Message)
}
