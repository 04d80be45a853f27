package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/asakaida/ifcheck/internal/entities"
	"github.com/asakaida/ifcheck/internal/schema"
	"github.com/asakaida/ifcheck/internal/services/parser"
)

func buildGraph(t *testing.T, records string) *entities.Graph {
	t.Helper()
	input := `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('test.ifc','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
` + records + `ENDSEC;
END-ISO-10303-21;
`
	g, err := parser.NewParser(parser.NewLexer(input)).Parse()
	if err != nil {
		t.Fatalf("failed to parse test model: %v", err)
	}
	return g
}

func ifc4Registry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewLoader().Load(context.Background(), "IFC4")
	if err != nil {
		t.Fatalf("failed to load IFC4 registry: %v", err)
	}
	return reg
}

func TestStructuralValidator_ValidFile(t *testing.T) {
	g := buildGraph(t, `#1=IFCPROJECT('2O2Fr$t4X7Zf8NOew3FLOa',$,'Project',$,$,$,$,$,$);
#2=IFCWALL('3O2Fr$t4X7Zf8NOew3FLOb',$,'Wall-01',$,$,$,$,$,.SOLIDWALL.);
#3=IFCSIUNIT(*,.LENGTHUNIT.,.MILLI.,.METRE.);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 0 {
		t.Fatalf("expected no issues for valid file, got %d: %v", len(issues), issues)
	}
}

func TestStructuralValidator_MissingRequiredAttribute(t *testing.T) {
	// One relationship instance with RelatedObjects omitted must yield
	// exactly one ERROR naming the instance and the attribute.
	g := buildGraph(t, `#4=IFCPROPERTYSET('4O2Fr$t4X7Zf8NOew3FLOc',$,'Pset_Test',$,(#5));
#5=IFCPROPERTYSINGLEVALUE('FireRating',$,IFCLABEL('F90'),$);
#6=IFCRELDEFINESBYPROPERTIES('5O2Fr$t4X7Zf8NOew3FLOd',$,$,$,$,#4);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected exactly 1 issue, got %d: %v", len(issues), issues)
	}

	issue := issues[0]
	if issue.Severity != entities.SeverityError {
		t.Errorf("expected ERROR severity, got %s", issue.Severity)
	}
	if issue.EntityID != 6 {
		t.Errorf("expected issue on #6, got #%d", issue.EntityID)
	}
	if issue.Check != "required-attribute" {
		t.Errorf("expected required-attribute check, got %s", issue.Check)
	}
	if !strings.Contains(issue.Message, "RelatedObjects") {
		t.Errorf("expected message to name RelatedObjects, got %q", issue.Message)
	}
}

func TestStructuralValidator_UnknownTypeContinues(t *testing.T) {
	// The unknown type is reported once and the rest of the file is still
	// checked.
	g := buildGraph(t, `#1=IFCSPACESHIP('x');
#2=IFCWALL('3O2Fr$t4X7Zf8NOew3FLOb',$,'Wall-01',$,$,$,$,$,.BANANA.);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %v", len(issues), issues)
	}
	if issues[0].EntityID != 1 || issues[0].Check != "unknown-type" {
		t.Errorf("expected unknown-type on #1, got %+v", issues[0])
	}
	if issues[1].EntityID != 2 || issues[1].Check != "type-compat" {
		t.Errorf("expected type-compat on #2, got %+v", issues[1])
	}
}

func TestStructuralValidator_AbstractType(t *testing.T) {
	g := buildGraph(t, `#1=IFCPRODUCT('2O2Fr$t4X7Zf8NOew3FLOa',$,$,$,$,$,$);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Check != "abstract-type" {
		t.Errorf("expected abstract-type check, got %s", issues[0].Check)
	}
}

func TestStructuralValidator_AttributeCount(t *testing.T) {
	g := buildGraph(t, `#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOa',$,'Wall');
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)

	var found bool
	for _, issue := range issues {
		if issue.Check == "attribute-count" {
			found = true
			if !strings.Contains(issue.Message, "9") || !strings.Contains(issue.Message, "3") {
				t.Errorf("expected declared vs actual counts in message, got %q", issue.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected an attribute-count issue, got %v", issues)
	}
}

func TestStructuralValidator_KindMismatch(t *testing.T) {
	g := buildGraph(t, `#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOa',$,42,$,$,$,$,$,$);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Check != "type-compat" || !strings.Contains(issues[0].Message, "Name") {
		t.Errorf("expected type-compat on Name, got %+v", issues[0])
	}
}

func TestStructuralValidator_ReferenceTargetType(t *testing.T) {
	// OwnerHistory must reference an IfcOwnerHistory, not a wall.
	g := buildGraph(t, `#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOa',#2,$,$,$,$,$,$,$);
#2=IFCWALL('3O2Fr$t4X7Zf8NOew3FLOb',$,$,$,$,$,$,$,$);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].EntityID != 1 {
		t.Errorf("expected issue on #1, got #%d", issues[0].EntityID)
	}
	if !strings.Contains(issues[0].Message, "IfcOwnerHistory") || !strings.Contains(issues[0].Message, "IFCWALL") {
		t.Errorf("expected expected-vs-actual reference types in message, got %q", issues[0].Message)
	}
}

func TestStructuralValidator_Cardinality(t *testing.T) {
	// RelatedObjects is SET [1:?]; an empty aggregate violates the lower
	// bound even though the attribute is present.
	g := buildGraph(t, `#4=IFCPROPERTYSET('4O2Fr$t4X7Zf8NOew3FLOc',$,'Pset_Test',$,(#5));
#5=IFCPROPERTYSINGLEVALUE('FireRating',$,IFCLABEL('F90'),$);
#6=IFCRELDEFINESBYPROPERTIES('5O2Fr$t4X7Zf8NOew3FLOd',$,$,$,(),#4);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Check != "cardinality" {
		t.Errorf("expected cardinality check, got %s", issues[0].Check)
	}
}

func TestStructuralValidator_DerivedSatisfiesRequired(t *testing.T) {
	// IFCSIUNIT writes '*' for the inherited Dimensions attribute; a derived
	// marker counts as present for a required attribute.
	g := buildGraph(t, `#1=IFCSIUNIT(*,.LENGTHUNIT.,$,.METRE.);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %d: %v", len(issues), issues)
	}
}

func TestStructuralValidator_SelectMembers(t *testing.T) {
	// IfcValue accepts a typed member; a wrapper type outside the select is
	// rejected.
	g := buildGraph(t, `#1=IFCPROPERTYSINGLEVALUE('Good',$,IFCLABEL('ok'),$);
#2=IFCPROPERTYSINGLEVALUE('Bad',$,IFCWALLTYPEENUM('no'),$);
`)
	issues := NewStructuralValidator(ifc4Registry(t)).Validate(g)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].EntityID != 2 {
		t.Errorf("expected issue on #2, got #%d", issues[0].EntityID)
	}
}

func TestStructuralValidator_RangeMatchesFull(t *testing.T) {
	g := buildGraph(t, `#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOa',$,42,$,$,$,$,$,$);
#2=IFCWALL('3O2Fr$t4X7Zf8NOew3FLOb',$,'ok',$,$,$,$,$,.BANANA.);
`)
	v := NewStructuralValidator(ifc4Registry(t))

	full := v.Validate(g)
	var sharded []entities.ValidationIssue
	for _, id := range g.IDs() {
		sharded = append(sharded, v.ValidateRange(g, []int64{id})...)
	}
	if len(full) != len(sharded) {
		t.Fatalf("full pass found %d issues, sharded %d", len(full), len(sharded))
	}
	for i := range full {
		if full[i] != sharded[i] {
			t.Errorf("issue %d differs between full and sharded runs", i)
		}
	}
}
