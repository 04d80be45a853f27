package entities

// Property is one key/value pair of a property set.
type Property struct {
	Name      string
	Value     Value  // NominalValue; omitted marker when the property has none
	ValueType string // Wrapped type name (e.g. "IFCLABEL"), empty when untyped
}

// PropertySet is a named, ordered collection of properties bound to an
// object. Standard-schema and project-defined sets are represented
// identically; namespace classification is a presentation concern.
type PropertySet struct {
	ID         int64 // Instance id of the defining IFCPROPERTYSET
	Name       string
	Properties []Property
}

// PsetBinding holds the property sets bound to one object, in the order the
// binding relationships appear in the file.
type PsetBinding struct {
	ObjectID   int64
	ObjectType string
	ObjectName string // Name attribute of the object, empty when absent
	Sets       []PropertySet
}

// GetSet returns the bound property set with the given name.
func (b *PsetBinding) GetSet(name string) *PropertySet {
	for i := range b.Sets {
		if b.Sets[i].Name == name {
			return &b.Sets[i]
		}
	}
	return nil
}
