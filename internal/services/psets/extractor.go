// Package psets extracts property set bindings from an entity graph and
// renders the property set reports. Two relationship patterns bind a set to
// an object: an IFCRELDEFINESBYPROPERTIES instance relating objects to a set
// definition, and an IFCTYPEOBJECT carrying set definitions directly in
// HasPropertySets. Standard-schema and project-defined sets are treated
// identically.
package psets

import (
	"strings"

	"github.com/asakaida/ifcheck/internal/entities"
	"github.com/asakaida/ifcheck/internal/schema"
)

// Fallback labels for unnamed definitions, kept stable because they appear
// in reports.
const (
	noName          = "<NO_NAME>"
	unnamedProperty = "<UNNAMED_PROPERTY>"
)

// Extractor resolves property set bindings against the schema registry.
// Attribute positions come from the registry's flattened attribute lists, never
// from hardcoded indices, so the same code serves every schema version.
type Extractor struct {
	registry *schema.Registry
}

// NewExtractor creates a new Extractor
func NewExtractor(registry *schema.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract returns the property sets bound to each object, one binding per
// object in ascending object id order. Within a binding the sets keep the
// order their relationships appear in the file. Objects with no bound sets
// do not appear.
func (x *Extractor) Extract(g *entities.Graph) []entities.PsetBinding {
	byObject := make(map[int64]*entities.PsetBinding)

	bind := func(objectID int64, set entities.PropertySet) {
		obj, ok := g.Get(objectID)
		if !ok {
			return
		}
		binding, exists := byObject[objectID]
		if !exists {
			binding = &entities.PsetBinding{
				ObjectID:   objectID,
				ObjectType: obj.Type,
				ObjectName: x.stringAttr(obj, "Name"),
			}
			byObject[objectID] = binding
		}
		binding.Sets = append(binding.Sets, set)
	}

	g.Each(func(e *entities.Entity) {
		switch {
		case e.Type == "IFCRELDEFINESBYPROPERTIES":
			set, ok := x.setFromValue(g, x.attrByName(e, "RelatingPropertyDefinition"))
			if !ok {
				return
			}
			related, ok := x.attrByName(e, "RelatedObjects").(*entities.ListValue)
			if !ok {
				return
			}
			for _, elem := range related.Elements {
				if ref, ok := elem.(*entities.RefValue); ok {
					bind(ref.ID, set)
				}
			}

		case x.registry.IsSubtypeOf(e.Type, "IfcTypeObject"):
			sets, ok := x.attrByName(e, "HasPropertySets").(*entities.ListValue)
			if !ok {
				return
			}
			for _, elem := range sets.Elements {
				if set, ok := x.setFromValue(g, elem); ok {
					bind(e.ID, set)
				}
			}
		}
	})

	// Ascending object id keeps the report deterministic.
	bindings := make([]entities.PsetBinding, 0, len(byObject))
	for _, id := range g.IDs() {
		if binding, ok := byObject[id]; ok {
			bindings = append(bindings, *binding)
		}
	}
	return bindings
}

// setFromValue resolves a reference value to a property set definition.
// References to non-IFCPROPERTYSET definitions (e.g. element quantities) are
// skipped, matching the reporting scope.
func (x *Extractor) setFromValue(g *entities.Graph, v entities.Value) (entities.PropertySet, bool) {
	ref, ok := v.(*entities.RefValue)
	if !ok {
		return entities.PropertySet{}, false
	}
	def, ok := g.Get(ref.ID)
	if !ok || !x.registry.IsSubtypeOf(def.Type, "IfcPropertySet") {
		return entities.PropertySet{}, false
	}
	return x.readSet(g, def), true
}

// readSet materializes one IFCPROPERTYSET definition with its properties in
// declaration order.
func (x *Extractor) readSet(g *entities.Graph, def *entities.Entity) entities.PropertySet {
	set := entities.PropertySet{
		ID:   def.ID,
		Name: readName(x.attrByName(def, "Name"), noName),
	}

	props, ok := x.attrByName(def, "HasProperties").(*entities.ListValue)
	if !ok {
		return set
	}
	for _, elem := range props.Elements {
		ref, ok := elem.(*entities.RefValue)
		if !ok {
			continue
		}
		prop, ok := g.Get(ref.ID)
		if !ok {
			continue
		}
		set.Properties = append(set.Properties, x.readProperty(prop))
	}
	return set
}

// readProperty reads one property entity. The nominal value's wrapper type
// (e.g. IFCLABEL) is split off into ValueType so reports can show both.
func (x *Extractor) readProperty(prop *entities.Entity) entities.Property {
	p := entities.Property{
		Name:  readName(x.attrByName(prop, "Name"), unnamedProperty),
		Value: &entities.OmittedValue{},
	}
	value := x.attrByName(prop, "NominalValue")
	if typed, ok := value.(*entities.TypedValue); ok {
		p.ValueType = strings.ToUpper(typed.Type)
		p.Value = typed.Inner
	} else if value != nil {
		p.Value = value
	}
	return p
}

// attrByName returns an entity's attribute by declared name, or the omitted
// marker when the type or attribute is unknown.
func (x *Extractor) attrByName(e *entities.Entity, name string) entities.Value {
	t, err := x.registry.Lookup(e.Type)
	if err != nil {
		return &entities.OmittedValue{}
	}
	for i, spec := range t.Flattened {
		if strings.EqualFold(spec.Name, name) {
			return e.Attr(i)
		}
	}
	return &entities.OmittedValue{}
}

// stringAttr returns a string-valued attribute, or empty
func (x *Extractor) stringAttr(e *entities.Entity, name string) string {
	if s, ok := x.attrByName(e, name).(*entities.StringValue); ok {
		return s.Val
	}
	return ""
}

// readName turns a value into a display name with a stable fallback for
// absent or blank names.
func readName(v entities.Value, fallback string) string {
	s, ok := v.(*entities.StringValue)
	if !ok {
		return fallback
	}
	name := strings.TrimSpace(s.Val)
	if name == "" {
		return fallback
	}
	return name
}
