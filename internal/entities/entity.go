package entities

import "sort"

// Entity represents one instance record from the DATA section of a STEP file.
// Example: "#12=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOH',#5,'Wall-01',$,$,#20,#25,$,.SOLIDWALL.);"
// Entities are immutable once parsed.
type Entity struct {
	ID         int64   // Positive instance id, unique within a file
	Type       string  // Uppercase entity type keyword (e.g. "IFCWALL")
	Attributes []Value // Positional attribute values
}

// Attr returns the attribute value at the given position, or the omitted
// marker when the position is out of range.
func (e *Entity) Attr(i int) Value {
	if i < 0 || i >= len(e.Attributes) {
		return &OmittedValue{}
	}
	return e.Attributes[i]
}

// HeaderRecord represents one record of the HEADER section
// (FILE_DESCRIPTION, FILE_NAME, FILE_SCHEMA), retained for round-trip output.
type HeaderRecord struct {
	Keyword    string
	Attributes []Value
}

// Graph is the id-indexed arena of all entities parsed from one file.
// Cross-references are expressed purely as integer-id lookups, so cycles
// between relationship entities carry no ownership hazard. The graph is
// read-only after construction.
type Graph struct {
	SchemaVersion string // Schema name from FILE_SCHEMA (e.g. "IFC4")
	Header        []*HeaderRecord

	entities map[int64]*Entity
	ids      []int64
}

// NewGraph creates a Graph over the given entities. The id index is sorted
// once here; all iteration helpers walk it in ascending order.
func NewGraph(schemaVersion string, header []*HeaderRecord, ents map[int64]*Entity) *Graph {
	ids := make([]int64, 0, len(ents))
	for id := range ents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Graph{
		SchemaVersion: schemaVersion,
		Header:        header,
		entities:      ents,
		ids:           ids,
	}
}

// Get returns the entity with the given id.
func (g *Graph) Get(id int64) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// IDs returns all instance ids in ascending order. Callers must not mutate
// the returned slice.
func (g *Graph) IDs() []int64 {
	return g.ids
}

// Len returns the number of entities in the graph.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Each calls fn for every entity in ascending id order.
func (g *Graph) Each(fn func(*Entity)) {
	for _, id := range g.ids {
		fn(g.entities[id])
	}
}
