package parser

import (
	"fmt"
	"strings"

	"github.com/asakaida/ifcheck/internal/entities"
)

// Writer re-serializes an entity graph to STEP physical file text. Instances
// are emitted in ascending id order, so writing the same graph twice yields
// identical bytes.
type Writer struct{}

// NewWriter creates a new Writer
func NewWriter() *Writer {
	return &Writer{}
}

// Write generates STEP text from a graph
func (w *Writer) Write(g *entities.Graph) string {
	var sb strings.Builder

	sb.WriteString("ISO-10303-21;\n")
	sb.WriteString("HEADER;\n")
	for _, rec := range g.Header {
		sb.WriteString(rec.Keyword)
		sb.WriteString(w.formatArgs(rec.Attributes))
		sb.WriteString(";\n")
	}
	sb.WriteString("ENDSEC;\n")
	sb.WriteString("DATA;\n")
	g.Each(func(e *entities.Entity) {
		sb.WriteString(fmt.Sprintf("#%d=%s%s;\n", e.ID, e.Type, w.formatArgs(e.Attributes)))
	})
	sb.WriteString("ENDSEC;\n")
	sb.WriteString("END-ISO-10303-21;\n")

	return sb.String()
}

// formatArgs renders an attribute list including the enclosing parentheses
func (w *Writer) formatArgs(attrs []entities.Value) string {
	parts := make([]string, len(attrs))
	for i, v := range attrs {
		parts[i] = entities.FormatValue(v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
