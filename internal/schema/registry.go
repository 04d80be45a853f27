package schema

import (
	"sort"
	"strings"
)

// Registry is the loaded-once, immutable description of every entity type of
// one schema version. All lookups are case-insensitive: STEP files carry
// uppercase keywords (IFCWALL) while the definitions use the schema's
// canonical casing (IfcWall).
type Registry struct {
	Version string

	types   map[string]*SchemaType // keyed by uppercase name
	defined map[string]Kind
	enums   map[string][]string
	selects map[string][]string

	typeNames []string // canonical names, sorted, for deterministic iteration
}

// Lookup returns the schema type with the given name
func (r *Registry) Lookup(name string) (*SchemaType, error) {
	t, ok := r.types[strings.ToUpper(name)]
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	return t, nil
}

// IsSubtypeOf reports whether type a is b or a descendant of b
func (r *Registry) IsSubtypeOf(a, b string) bool {
	target := strings.ToUpper(b)
	cur, ok := r.types[strings.ToUpper(a)]
	if !ok {
		return false
	}
	for {
		if strings.ToUpper(cur.Name) == target {
			return true
		}
		if cur.Supertype == "" {
			return false
		}
		next, ok := r.types[strings.ToUpper(cur.Supertype)]
		if !ok {
			return false
		}
		cur = next
	}
}

// AttributesOf returns the flattened attribute specs of the given type,
// inherited attributes first in declaration order up the supertype chain.
func (r *Registry) AttributesOf(name string) ([]AttributeSpec, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Flattened, nil
}

// RulesFor returns all WHERE rules applying to the given type, inherited
// rules first. Unknown types have no rules.
func (r *Registry) RulesFor(name string) []*Rule {
	var chain []*SchemaType
	cur, ok := r.types[strings.ToUpper(name)]
	for ok {
		chain = append(chain, cur)
		if cur.Supertype == "" {
			break
		}
		cur, ok = r.types[strings.ToUpper(cur.Supertype)]
	}
	var rules []*Rule
	for i := len(chain) - 1; i >= 0; i-- {
		rules = append(rules, chain[i].Rules...)
	}
	return rules
}

// DefinedKind resolves a defined type name to its primitive kind
func (r *Registry) DefinedKind(name string) (Kind, bool) {
	k, ok := r.defined[strings.ToUpper(name)]
	return k, ok
}

// EnumLiterals returns the literal set of an enumeration type
func (r *Registry) EnumLiterals(name string) ([]string, bool) {
	lits, ok := r.enums[strings.ToUpper(name)]
	return lits, ok
}

// SelectMembers returns the member type names of a select type
func (r *Registry) SelectMembers(name string) ([]string, bool) {
	members, ok := r.selects[strings.ToUpper(name)]
	return members, ok
}

// IsEntityType reports whether the name is a declared entity type
func (r *Registry) IsEntityType(name string) bool {
	_, ok := r.types[strings.ToUpper(name)]
	return ok
}

// TypeNames returns all canonical entity type names in sorted order
func (r *Registry) TypeNames() []string {
	return r.typeNames
}

// buildIndexes finalizes the registry after loading: flattened attribute
// lists, the sorted name index, and supertype sanity checks have already run
// in the loader; this only fills derived lookups.
func (r *Registry) buildIndexes() {
	names := make([]string, 0, len(r.types))
	for _, t := range r.types {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	r.typeNames = names
}
