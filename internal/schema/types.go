// Package schema holds the versioned IFC schema registry: entity type
// definitions with their attribute contracts, defined types, enumerations,
// select types and WHERE rules. A registry is loaded once from an embedded
// definition file and is immutable afterwards, so concurrent validators can
// share it without synchronization.
package schema

import "fmt"

// Kind is the primitive value kind a defined type resolves to.
type Kind string

const (
	KindString  Kind = "string"
	KindInt     Kind = "int"
	KindReal    Kind = "real"
	KindBool    Kind = "bool"
	KindLogical Kind = "logical" // bool or the UNKNOWN literal
)

// AggregateKind distinguishes scalar attributes from collection-valued ones.
type AggregateKind int

const (
	AggregateNone AggregateKind = iota
	AggregateList
	AggregateSet
)

// Unbounded marks an open upper cardinality bound ("?" in the definition).
const Unbounded = -1

// TypeExpr is a parsed attribute type expression. For collection-valued
// attributes Aggregate, Min and Max describe the cardinality bounds and Base
// names the element type; otherwise Base is the declared type itself.
type TypeExpr struct {
	Aggregate AggregateKind
	Min       int
	Max       int
	Base      string
}

// String renders the expression in EXPRESS-like notation for diagnostics.
func (t TypeExpr) String() string {
	switch t.Aggregate {
	case AggregateList:
		return fmt.Sprintf("LIST [%s:%s] OF %s", bound(t.Min), bound(t.Max), t.Base)
	case AggregateSet:
		return fmt.Sprintf("SET [%s:%s] OF %s", bound(t.Min), bound(t.Max), t.Base)
	default:
		return t.Base
	}
}

func bound(n int) string {
	if n == Unbounded {
		return "?"
	}
	return fmt.Sprintf("%d", n)
}

// AttributeSpec describes one declared attribute of an entity type.
type AttributeSpec struct {
	Name     string
	Type     TypeExpr
	Optional bool
}

// Rule is a WHERE rule: a declarative boolean constraint attached to an
// entity type beyond basic structural typing. The predicate is a CEL
// expression over "self", a map of the entity's attributes with references
// expanded to a bounded depth. Predicates are pure and terminate by
// construction.
type Rule struct {
	Name     string
	Owner    string // Entity type the rule is declared on
	Severity string // "error" or "warning"
	Expr     string // CEL source
	Message  string // Template with {id} and {type} placeholders
}

// SchemaType describes one entity type: its own attributes, its place in the
// supertype chain, and its WHERE rules. Flattened is computed once at load
// time: inherited attributes precede the type's own, matching declaration
// order up the chain.
type SchemaType struct {
	Name      string
	Supertype string // Empty for root types
	Abstract  bool

	Attributes []AttributeSpec // Own attributes, declaration order
	Flattened  []AttributeSpec // Inherited first, then own
	Inverses   []string        // Inverse relation names the type participates in
	Rules      []*Rule         // Own WHERE rules, declaration order
}

// UnknownTypeError reports a lookup of a type the registry does not define.
// It is recoverable: the validator records it as an issue and continues.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown entity type: %s", e.Name)
}

// UnknownSchemaVersionError reports a FILE_SCHEMA version with no registry
// definition. It is fatal for the file being processed.
type UnknownSchemaVersionError struct {
	Version string
}

func (e *UnknownSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version: %s", e.Version)
}
