package psets

import (
	"github.com/asakaida/ifcheck/internal/entities"
)

// NameStats aggregates every property set definition sharing one name.
type NameStats struct {
	Definitions   int            // How many IFCPROPERTYSET instances carry the name
	AssignedItems int            // How many objects the definitions are bound to
	EntityTypes   map[string]int // Bound object type -> count
	PropertyNames map[string]bool
}

// Stats is the file-level property set summary.
type Stats struct {
	ByName     map[string]*NameStats
	Instances  int // Total IFCPROPERTYSET instances
	Unassigned int // Instances bound to nothing
}

// CollectStats aggregates property set usage across the whole graph. Unlike
// Extract, this also counts definitions that no relationship binds, so the
// report can surface orphaned sets.
func (x *Extractor) CollectStats(g *entities.Graph) *Stats {
	stats := &Stats{ByName: make(map[string]*NameStats)}
	nameByID := make(map[int64]string)
	assigned := make(map[int64]bool)

	forName := func(name string) *NameStats {
		ns, ok := stats.ByName[name]
		if !ok {
			ns = &NameStats{
				EntityTypes:   make(map[string]int),
				PropertyNames: make(map[string]bool),
			}
			stats.ByName[name] = ns
		}
		return ns
	}

	g.Each(func(e *entities.Entity) {
		if !x.registry.IsSubtypeOf(e.Type, "IfcPropertySet") {
			return
		}
		stats.Instances++
		name := readName(x.attrByName(e, "Name"), noName)
		nameByID[e.ID] = name

		ns := forName(name)
		ns.Definitions++
		if props, ok := x.attrByName(e, "HasProperties").(*entities.ListValue); ok {
			for _, elem := range props.Elements {
				ref, ok := elem.(*entities.RefValue)
				if !ok {
					continue
				}
				if prop, ok := g.Get(ref.ID); ok {
					ns.PropertyNames[readName(x.attrByName(prop, "Name"), unnamedProperty)] = true
				}
			}
		}
	})

	g.Each(func(e *entities.Entity) {
		switch {
		case e.Type == "IFCRELDEFINESBYPROPERTIES":
			ref, ok := x.attrByName(e, "RelatingPropertyDefinition").(*entities.RefValue)
			if !ok {
				return
			}
			name, ok := nameByID[ref.ID]
			if !ok {
				return
			}
			ns := forName(name)
			if related, ok := x.attrByName(e, "RelatedObjects").(*entities.ListValue); ok {
				ns.AssignedItems += len(related.Elements)
				for _, elem := range related.Elements {
					if objRef, ok := elem.(*entities.RefValue); ok {
						if obj, ok := g.Get(objRef.ID); ok {
							ns.EntityTypes[obj.Type]++
						}
					}
				}
			}
			assigned[ref.ID] = true

		case x.registry.IsSubtypeOf(e.Type, "IfcTypeObject"):
			sets, ok := x.attrByName(e, "HasPropertySets").(*entities.ListValue)
			if !ok {
				return
			}
			for _, elem := range sets.Elements {
				ref, ok := elem.(*entities.RefValue)
				if !ok {
					continue
				}
				name, ok := nameByID[ref.ID]
				if !ok {
					continue
				}
				ns := forName(name)
				ns.AssignedItems++
				ns.EntityTypes[e.Type]++
				assigned[ref.ID] = true
			}
		}
	})

	stats.Unassigned = stats.Instances - len(assigned)
	return stats
}
