package psets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asakaida/ifcheck/internal/entities"
)

// RenderBindings produces the per-object report blocks. Bindings arrive in
// ascending object id order from Extract; sets and properties keep
// declaration order, so the output is byte-stable across runs.
func RenderBindings(bindings []entities.PsetBinding) []string {
	var lines []string
	for i, binding := range bindings {
		if i > 0 {
			lines = append(lines, "")
		}
		header := fmt.Sprintf("#%d %s", binding.ObjectID, binding.ObjectType)
		if binding.ObjectName != "" {
			header += fmt.Sprintf(" '%s'", binding.ObjectName)
		}
		lines = append(lines, header)

		for _, set := range binding.Sets {
			lines = append(lines, fmt.Sprintf("  %s (#%d)", set.Name, set.ID))
			for _, prop := range set.Properties {
				line := fmt.Sprintf("    %s = %s", prop.Name, entities.FormatValue(prop.Value))
				if prop.ValueType != "" {
					line += fmt.Sprintf(" (%s)", prop.ValueType)
				}
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// RenderStats produces the aggregate summary block. Set names order
// case-insensitively; entity types order by descending count, then name;
// property name lists truncate at maxProperties.
func RenderStats(fileName, schemaVersion string, stats *Stats, maxProperties int) []string {
	lines := []string{
		"FILE: " + fileName,
		"SCHEMA: " + schemaVersion,
		fmt.Sprintf("IFCPROPERTYSET_INSTANCES: %d", stats.Instances),
		fmt.Sprintf("UNIQUE_PROPERTYSET_NAMES: %d", len(stats.ByName)),
		fmt.Sprintf("UNASSIGNED_IFCPROPERTYSET_INSTANCES: %d", stats.Unassigned),
		"",
		"PROPERTY_SETS:",
	}

	if len(stats.ByName) == 0 {
		return append(lines, "none")
	}

	names := make([]string, 0, len(stats.ByName))
	for name := range stats.ByName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	for index, name := range names {
		ns := stats.ByName[name]
		lines = append(lines, fmt.Sprintf("%d. %s", index+1, name))
		lines = append(lines, fmt.Sprintf("   definitions: %d", ns.Definitions))
		lines = append(lines, fmt.Sprintf("   assigned_items: %d", ns.AssignedItems))
		lines = append(lines, "   entity_types: "+renderEntityTypes(ns.EntityTypes))
		lines = append(lines, renderPropertyNames(ns.PropertyNames, maxProperties))
	}
	return lines
}

func renderEntityTypes(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	types := make([]string, 0, len(counts))
	for name := range counts {
		types = append(types, name)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	parts := make([]string, len(types))
	for i, name := range types {
		parts[i] = fmt.Sprintf("%s:%d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}

func renderPropertyNames(nameSet map[string]bool, maxProperties int) string {
	if len(nameSet) == 0 {
		return "   properties(0): none"
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	displayed := names
	suffix := ""
	if maxProperties > 0 && len(names) > maxProperties {
		displayed = names[:maxProperties]
		suffix = fmt.Sprintf(" ... (+%d more)", len(names)-maxProperties)
	}
	return fmt.Sprintf("   properties(%d): %s%s", len(names), strings.Join(displayed, ", "), suffix)
}
