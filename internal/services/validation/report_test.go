package validation

import (
	"reflect"
	"strings"
	"testing"

	"github.com/asakaida/ifcheck/internal/entities"
)

func TestReport_SortOrder(t *testing.T) {
	structural := []entities.ValidationIssue{
		{Severity: entities.SeverityError, EntityID: 9, Check: "s-late", Source: entities.SourceStructural},
		{Severity: entities.SeverityError, EntityID: 2, Check: "s-early", Source: entities.SourceStructural},
	}
	express := []entities.ValidationIssue{
		{Severity: entities.SeverityWarning, EntityID: 2, Check: "e-early", Source: entities.SourceExpress},
		{Severity: entities.SeverityError, EntityID: 5, Check: "e-mid", Source: entities.SourceExpress},
	}

	report := Assemble(structural, express)

	var got []string
	for _, issue := range report.Issues {
		got = append(got, issue.Check)
	}
	// Entity id ascending; structural before express on the same entity.
	want := []string{"s-early", "e-early", "e-mid", "s-late"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}

	if report.Errors != 3 || report.Warnings != 1 {
		t.Errorf("expected 3 errors and 1 warning, got %d and %d", report.Errors, report.Warnings)
	}
	if report.Valid() {
		t.Error("report with errors must not be valid")
	}
}

func TestReport_WarningsDoNotInvalidate(t *testing.T) {
	report := Assemble(nil, []entities.ValidationIssue{
		{Severity: entities.SeverityWarning, EntityID: 1, Check: "w", Source: entities.SourceExpress},
	})
	if !report.Valid() {
		t.Error("warnings alone must not invalidate a file")
	}
	if report.Summary() != "0 errors, 1 warnings" {
		t.Errorf("unexpected summary: %q", report.Summary())
	}
}

func TestReport_EmptySummary(t *testing.T) {
	report := Assemble(nil, nil)
	if report.Summary() != "0 errors, 0 warnings" {
		t.Errorf("unexpected summary: %q", report.Summary())
	}
	lines := report.Render(10)
	if len(lines) != 1 {
		t.Fatalf("expected only the summary line, got %v", lines)
	}
}

func TestReport_RenderTruncation(t *testing.T) {
	var issues []entities.ValidationIssue
	for i := 1; i <= 5; i++ {
		issues = append(issues, entities.ValidationIssue{
			Severity: entities.SeverityError,
			EntityID: int64(i),
			Check:    "c",
			Message:  "m",
			Source:   entities.SourceStructural,
		})
	}
	report := Assemble(issues, nil)

	lines := report.Render(3)
	// Summary, three issues, one truncation line.
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[4], "and 2 more findings") {
		t.Errorf("expected truncation line, got %q", lines[4])
	}

	full := report.Render(0)
	if len(full) != 6 {
		t.Errorf("expected unlimited render to show all issues, got %d lines", len(full))
	}
}

func TestReport_Deterministic(t *testing.T) {
	g := buildGraph(t, `#1=IFCWALL('short',$,42,$,$,$,$,$,.BANANA.);
#2=IFCPROJECT('2O2Fr$t4X7Zf8NOew3FLOa',$,$,$,$,$,$,$,$);
`)
	reg := ifc4Registry(t)
	engine := newEngine(t)
	validator := NewStructuralValidator(reg)

	first := Assemble(validator.Validate(g), engine.Evaluate(g)).Render(0)
	second := Assemble(validator.Validate(g), engine.Evaluate(g)).Render(0)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-running validation produced different reports:\n%v\n%v", first, second)
	}
}

func TestReport_ExpressOnlyAdds(t *testing.T) {
	g := buildGraph(t, `#1=IFCWALL('short',$,42,$,$,$,$,$,$);
`)
	reg := ifc4Registry(t)
	structural := NewStructuralValidator(reg).Validate(g)

	without := Assemble(structural, nil)
	with := Assemble(structural, newEngine(t).Evaluate(g))
	if with.Errors < without.Errors {
		t.Errorf("express rules removed errors: %d -> %d", without.Errors, with.Errors)
	}
}
