package entities

import (
	"fmt"
	"strings"
)

// Value is the interface for all attribute value variants parsed from a STEP
// instance record. Values are immutable once parsed.
type Value interface {
	isValue()
}

// StringValue represents a quoted string literal
// Example: 'Wall-01'
type StringValue struct {
	Val string
}

func (v *StringValue) isValue() {}

// IntValue represents an integer literal
type IntValue struct {
	Val int64
}

func (v *IntValue) isValue() {}

// RealValue represents a real literal
// Example: 0.001, 1.E-05
type RealValue struct {
	Val float64
}

func (v *RealValue) isValue() {}

// BoolValue represents a boolean enumeration literal (.T. or .F.)
type BoolValue struct {
	Val bool
}

func (v *BoolValue) isValue() {}

// EnumValue represents an enumeration literal without the enclosing dots
// Example: .ELEMENT. is stored as "ELEMENT"
type EnumValue struct {
	Val string
}

func (v *EnumValue) isValue() {}

// RefValue represents a reference to another entity instance by id
// Example: #42
type RefValue struct {
	ID int64
}

func (v *RefValue) isValue() {}

// ListValue represents a parenthesized aggregate of values
// Example: (#1, #2, #3)
type ListValue struct {
	Elements []Value
}

func (v *ListValue) isValue() {}

// TypedValue represents a simple value wrapped in its defined type
// Example: IFCLABEL('Pset_WallCommon')
type TypedValue struct {
	Type  string
	Inner Value
}

func (v *TypedValue) isValue() {}

// OmittedValue represents the explicit absence marker ($)
type OmittedValue struct{}

func (v *OmittedValue) isValue() {}

// DerivedValue represents the derived-in-subtype marker (*)
type DerivedValue struct{}

func (v *DerivedValue) isValue() {}

// IsAbsent reports whether the value is the omitted marker.
// A derived marker (*) is not absent: the value is supplied by a
// subtype derivation and simply not written at this position.
func IsAbsent(v Value) bool {
	_, ok := v.(*OmittedValue)
	return ok
}

// FormatValue renders a value in STEP notation. Used by reports and the
// writer so both stay byte-identical across runs.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case *StringValue:
		return "'" + strings.ReplaceAll(val.Val, "'", "''") + "'"
	case *IntValue:
		return fmt.Sprintf("%d", val.Val)
	case *RealValue:
		return formatReal(val.Val)
	case *BoolValue:
		if val.Val {
			return ".T."
		}
		return ".F."
	case *EnumValue:
		return "." + val.Val + "."
	case *RefValue:
		return fmt.Sprintf("#%d", val.ID)
	case *ListValue:
		parts := make([]string, len(val.Elements))
		for i, e := range val.Elements {
			parts[i] = FormatValue(e)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case *TypedValue:
		return val.Type + "(" + FormatValue(val.Inner) + ")"
	case *OmittedValue:
		return "$"
	case *DerivedValue:
		return "*"
	default:
		return "?"
	}
}

// formatReal renders a float in STEP real notation, which always carries a
// decimal point or an exponent.
func formatReal(f float64) string {
	s := fmt.Sprintf("%G", f)
	if !strings.ContainsAny(s, ".E") {
		s += "."
	}
	return s
}
