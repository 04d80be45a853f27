// Package validation checks a parsed entity graph against the schema
// registry. Two independent rule layers exist: structural checks (typing,
// optionality, cardinality, reference compatibility) always run; EXPRESS
// WHERE rules run only when explicitly enabled. Violations are data, never
// control flow: they accumulate into issues and processing continues.
package validation

import (
	"fmt"
	"strings"

	"github.com/asakaida/ifcheck/internal/entities"
	"github.com/asakaida/ifcheck/internal/schema"
)

// StructuralValidator walks entities against their declared attribute
// contracts. It holds no per-run state, so one instance can serve concurrent
// shards of the same graph.
type StructuralValidator struct {
	registry *schema.Registry
}

// NewStructuralValidator creates a new StructuralValidator
func NewStructuralValidator(registry *schema.Registry) *StructuralValidator {
	return &StructuralValidator{registry: registry}
}

// Validate checks every entity in ascending id order
func (v *StructuralValidator) Validate(g *entities.Graph) []entities.ValidationIssue {
	return v.ValidateRange(g, g.IDs())
}

// ValidateRange checks the given entities only. Shards of one graph can be
// validated in parallel; each call appends to its own issue slice.
func (v *StructuralValidator) ValidateRange(g *entities.Graph, ids []int64) []entities.ValidationIssue {
	var issues []entities.ValidationIssue
	for _, id := range ids {
		e, ok := g.Get(id)
		if !ok {
			continue
		}
		issues = append(issues, v.ValidateEntity(g, e)...)
	}
	return issues
}

// ValidateEntity checks one entity. An unknown type is reported once and
// ends the entity's checks; everything else is checked attribute by
// attribute so one defect does not hide the next.
func (v *StructuralValidator) ValidateEntity(g *entities.Graph, e *entities.Entity) []entities.ValidationIssue {
	var issues []entities.ValidationIssue

	t, err := v.registry.Lookup(e.Type)
	if err != nil {
		issues = append(issues, entities.ValidationIssue{
			Severity: entities.SeverityError,
			EntityID: e.ID,
			Check:    "unknown-type",
			Message:  fmt.Sprintf("entity type %s is not defined in schema %s", e.Type, v.registry.Version),
			Source:   entities.SourceStructural,
		})
		return issues
	}

	if t.Abstract {
		issues = append(issues, entities.ValidationIssue{
			Severity: entities.SeverityError,
			EntityID: e.ID,
			Check:    "abstract-type",
			Message:  fmt.Sprintf("abstract type %s cannot be instantiated", t.Name),
			Source:   entities.SourceStructural,
		})
	}

	specs := t.Flattened
	if len(e.Attributes) != len(specs) {
		issues = append(issues, entities.ValidationIssue{
			Severity: entities.SeverityError,
			EntityID: e.ID,
			Check:    "attribute-count",
			Message:  fmt.Sprintf("%s declares %d attributes, instance has %d", t.Name, len(specs), len(e.Attributes)),
			Source:   entities.SourceStructural,
		})
	}

	n := len(specs)
	if len(e.Attributes) < n {
		n = len(e.Attributes)
	}
	for i := 0; i < n; i++ {
		spec := specs[i]
		value := e.Attributes[i]

		if entities.IsAbsent(value) {
			if !spec.Optional {
				issues = append(issues, entities.ValidationIssue{
					Severity: entities.SeverityError,
					EntityID: e.ID,
					Check:    "required-attribute",
					Message:  fmt.Sprintf("required attribute %s has no value (expected %s)", spec.Name, spec.Type),
					Source:   entities.SourceStructural,
				})
			}
			continue
		}
		if _, ok := value.(*entities.DerivedValue); ok {
			// The value is supplied by a subtype derivation; nothing to
			// check at this position.
			continue
		}

		issues = append(issues, v.checkAttribute(g, e, spec, value)...)
	}

	return issues
}

// checkAttribute checks one present attribute value against its spec
func (v *StructuralValidator) checkAttribute(g *entities.Graph, e *entities.Entity, spec schema.AttributeSpec, value entities.Value) []entities.ValidationIssue {
	var issues []entities.ValidationIssue

	issue := func(check, format string, args ...interface{}) {
		issues = append(issues, entities.ValidationIssue{
			Severity: entities.SeverityError,
			EntityID: e.ID,
			Check:    check,
			Message:  fmt.Sprintf("attribute %s: ", spec.Name) + fmt.Sprintf(format, args...),
			Source:   entities.SourceStructural,
		})
	}

	if spec.Type.Aggregate != schema.AggregateNone {
		list, ok := value.(*entities.ListValue)
		if !ok {
			issue("type-compat", "expected %s, got %s", spec.Type, describeValue(g, value))
			return issues
		}
		size := len(list.Elements)
		if size < spec.Type.Min || (spec.Type.Max != schema.Unbounded && size > spec.Type.Max) {
			issue("cardinality", "expected %s, got %d elements", spec.Type, size)
		}
		for idx, elem := range list.Elements {
			if ok, detail := v.valueMatches(g, spec.Type.Base, elem); !ok {
				issue("type-compat", "element %d: %s", idx, detail)
			}
		}
		return issues
	}

	if ok, detail := v.valueMatches(g, spec.Type.Base, value); !ok {
		issue("type-compat", "%s", detail)
	}
	return issues
}

// valueMatches checks a scalar value against a declared base type name,
// which may be an entity type, a defined type, an enumeration or a select.
func (v *StructuralValidator) valueMatches(g *entities.Graph, base string, value entities.Value) (bool, string) {
	if v.registry.IsEntityType(base) {
		ref, ok := value.(*entities.RefValue)
		if !ok {
			return false, fmt.Sprintf("expected reference to %s, got %s", base, describeValue(g, value))
		}
		target, ok := g.Get(ref.ID)
		if !ok {
			// The parser rejects dangling references, so this only happens
			// on graphs constructed by hand.
			return false, fmt.Sprintf("expected reference to %s, got missing instance #%d", base, ref.ID)
		}
		if !v.registry.IsSubtypeOf(target.Type, base) {
			return false, fmt.Sprintf("expected reference to %s, got #%d of type %s", base, target.ID, target.Type)
		}
		return true, ""
	}

	if kind, ok := v.registry.DefinedKind(base); ok {
		if kindMatches(kind, value) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %s (%s), got %s", base, kind, describeValue(g, value))
	}

	if literals, ok := v.registry.EnumLiterals(base); ok {
		enum, isEnum := value.(*entities.EnumValue)
		if !isEnum {
			return false, fmt.Sprintf("expected %s enumeration, got %s", base, describeValue(g, value))
		}
		for _, lit := range literals {
			if lit == enum.Val {
				return true, ""
			}
		}
		return false, fmt.Sprintf("literal .%s. is not a member of %s", enum.Val, base)
	}

	if members, ok := v.registry.SelectMembers(base); ok {
		return v.selectMatches(g, base, members, value)
	}

	// Base type not covered by the registry subset; nothing to check.
	return true, ""
}

// selectMatches accepts a value when any select member does. A typed value
// names its member explicitly; an untyped one matches on kind.
func (v *StructuralValidator) selectMatches(g *entities.Graph, base string, members []string, value entities.Value) (bool, string) {
	if typed, ok := value.(*entities.TypedValue); ok {
		for _, m := range members {
			if strings.EqualFold(m, typed.Type) {
				if kind, ok := v.registry.DefinedKind(m); ok {
					if kindMatches(kind, typed.Inner) {
						return true, ""
					}
					return false, fmt.Sprintf("%s wraps %s, expected %s", typed.Type, describeValue(g, typed.Inner), kind)
				}
				return true, ""
			}
		}
		return false, fmt.Sprintf("%s is not a member of select %s", typed.Type, base)
	}

	for _, m := range members {
		if v.registry.IsEntityType(m) {
			if ok, _ := v.valueMatches(g, m, value); ok {
				return true, ""
			}
			continue
		}
		if kind, ok := v.registry.DefinedKind(m); ok && kindMatches(kind, value) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%s does not match any member of select %s", describeValue(g, value), base)
}

// kindMatches checks a value against a primitive kind. Integers are
// acceptable where reals are expected; a logical accepts the UNKNOWN literal
// besides the booleans.
func kindMatches(kind schema.Kind, value entities.Value) bool {
	switch kind {
	case schema.KindString:
		_, ok := value.(*entities.StringValue)
		return ok
	case schema.KindInt:
		_, ok := value.(*entities.IntValue)
		return ok
	case schema.KindReal:
		switch value.(type) {
		case *entities.RealValue, *entities.IntValue:
			return true
		}
		return false
	case schema.KindBool:
		_, ok := value.(*entities.BoolValue)
		return ok
	case schema.KindLogical:
		switch val := value.(type) {
		case *entities.BoolValue:
			return true
		case *entities.EnumValue:
			return val.Val == "U"
		}
		return false
	}
	return false
}

// describeValue renders a value's shape for expected-vs-actual messages
func describeValue(g *entities.Graph, value entities.Value) string {
	switch val := value.(type) {
	case *entities.StringValue:
		return "string"
	case *entities.IntValue:
		return "integer"
	case *entities.RealValue:
		return "real"
	case *entities.BoolValue:
		return "boolean"
	case *entities.EnumValue:
		return fmt.Sprintf("enumeration .%s.", val.Val)
	case *entities.RefValue:
		if target, ok := g.Get(val.ID); ok {
			return fmt.Sprintf("reference to #%d (%s)", val.ID, target.Type)
		}
		return fmt.Sprintf("reference to missing #%d", val.ID)
	case *entities.ListValue:
		return fmt.Sprintf("list of %d elements", len(val.Elements))
	case *entities.TypedValue:
		return fmt.Sprintf("typed value %s", val.Type)
	case *entities.OmittedValue:
		return "omitted"
	case *entities.DerivedValue:
		return "derived"
	default:
		return "unknown value"
	}
}
