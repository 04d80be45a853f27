package schema

import (
	"context"
	"errors"
	"testing"
)

func loadRegistry(t *testing.T, version string) *Registry {
	t.Helper()
	reg, err := NewLoader().Load(context.Background(), version)
	if err != nil {
		t.Fatalf("failed to load %s: %v", version, err)
	}
	return reg
}

func TestLoader_SupportedVersions(t *testing.T) {
	loader := NewLoader()
	for _, version := range []string{"IFC4", "IFC2X3", "ifc4"} {
		if !loader.Supported(version) {
			t.Errorf("expected %s to be supported", version)
		}
		if _, err := loader.Load(context.Background(), version); err != nil {
			t.Errorf("failed to load %s: %v", version, err)
		}
	}
}

func TestLoader_UnknownVersion(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "IFC9")
	if err == nil {
		t.Fatal("expected error for unknown schema version")
	}
	var unknown *UnknownSchemaVersionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSchemaVersionError, got %T", err)
	}
	if unknown.Version != "IFC9" {
		t.Errorf("expected version IFC9 in error, got %s", unknown.Version)
	}
}

func TestLoader_CachesRegistry(t *testing.T) {
	loader := NewLoader()
	first, err := loader.Load(context.Background(), "IFC4")
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	second, err := loader.Load(context.Background(), "ifc4")
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if first != second {
		t.Error("expected the cached registry instance on the second load")
	}
}

func TestRegistry_FlattenedAttributeOrder(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	attrs, err := reg.AttributesOf("IFCWALL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Inherited attributes come first in supertype declaration order:
	// IfcRoot contributes GlobalId..Description before anything deeper.
	want := []string{"GlobalId", "OwnerHistory", "Name", "Description"}
	if len(attrs) < len(want) {
		t.Fatalf("expected at least %d attributes, got %d", len(want), len(attrs))
	}
	for i, name := range want {
		if attrs[i].Name != name {
			t.Errorf("attribute %d: expected %s, got %s", i, name, attrs[i].Name)
		}
	}

	last := attrs[len(attrs)-1]
	if last.Name != "PredefinedType" {
		t.Errorf("expected IfcWall's own PredefinedType last, got %s", last.Name)
	}
}

func TestRegistry_IsSubtypeOf(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	tests := []struct {
		a, b string
		want bool
	}{
		{"IFCWALL", "IfcWall", true},
		{"IFCWALL", "IfcElement", true},
		{"IFCWALL", "IfcProduct", true},
		{"IFCWALL", "IfcRoot", true},
		{"IFCWALL", "IfcDoor", false},
		{"IFCPRODUCT", "IfcWall", false},
		{"NOTATYPE", "IfcRoot", false},
	}

	for _, tt := range tests {
		if got := reg.IsSubtypeOf(tt.a, tt.b); got != tt.want {
			t.Errorf("IsSubtypeOf(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRegistry_LookupCaseInsensitive(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	for _, name := range []string{"IFCWALL", "IfcWall", "ifcwall"} {
		typ, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%s) failed: %v", name, err)
		}
		if typ.Name != "IfcWall" {
			t.Errorf("Lookup(%s): expected canonical IfcWall, got %s", name, typ.Name)
		}
	}

	_, err := reg.Lookup("IFCSPACESHIP")
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTypeError, got %T", err)
	}
}

func TestRegistry_RulesInheritedFirst(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	rules := reg.RulesFor("IFCPROJECT")
	if len(rules) < 2 {
		t.Fatalf("expected inherited plus own rules for IfcProject, got %d", len(rules))
	}
	if rules[0].Owner != "IfcRoot" {
		t.Errorf("expected IfcRoot rule first, got owner %s", rules[0].Owner)
	}
	var ownRule bool
	for _, r := range rules {
		if r.Owner == "IfcProject" {
			ownRule = true
		}
	}
	if !ownRule {
		t.Error("expected IfcProject to contribute its own rule")
	}

	if got := reg.RulesFor("NOTATYPE"); len(got) != 0 {
		t.Errorf("expected no rules for unknown type, got %d", len(got))
	}
}

func TestRegistry_InverseParticipation(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	typ, err := reg.Lookup("IfcObject")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, inv := range typ.Inverses {
		if inv == "IsDefinedBy" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected IfcObject to participate in IsDefinedBy, got %v", typ.Inverses)
	}
}

func TestRegistry_DefinedEnumSelect(t *testing.T) {
	reg := loadRegistry(t, "IFC4")

	kind, ok := reg.DefinedKind("IFCLABEL")
	if !ok || kind != KindString {
		t.Errorf("expected IFCLABEL -> string, got %v (%v)", kind, ok)
	}

	literals, ok := reg.EnumLiterals("IFCSIUNITNAME")
	if !ok || len(literals) == 0 {
		t.Fatal("expected IFCSIUNITNAME literals")
	}

	members, ok := reg.SelectMembers("IFCVALUE")
	if !ok || len(members) == 0 {
		t.Fatal("expected IFCVALUE members")
	}
}

func TestParseTypeExpr(t *testing.T) {
	tests := []struct {
		input   string
		want    TypeExpr
		wantErr bool
	}{
		{input: "IfcLabel", want: TypeExpr{Base: "IfcLabel"}},
		{input: "SET [1:?] OF IfcObjectDefinition", want: TypeExpr{Aggregate: AggregateSet, Min: 1, Max: Unbounded, Base: "IfcObjectDefinition"}},
		{input: "LIST [3:4] OF IfcInteger", want: TypeExpr{Aggregate: AggregateList, Min: 3, Max: 4, Base: "IfcInteger"}},
		{input: "LIST [1:] OF IfcReal", wantErr: true},
		{input: "SET [a:b] OF IfcReal", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseTypeExpr(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTypeExpr(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTypeExpr(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTypeExpr(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestRegistry_TypeNamesSorted(t *testing.T) {
	reg := loadRegistry(t, "IFC2X3")
	names := reg.TypeNames()
	if len(names) == 0 {
		t.Fatal("expected type names")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("type names not sorted at %d: %s >= %s", i, names[i-1], names[i])
		}
	}
}
