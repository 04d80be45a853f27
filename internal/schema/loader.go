package schema

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asakaida/ifcheck/pkg/cache"
	"github.com/asakaida/ifcheck/pkg/cache/memorycache"
)

//go:embed defs/*.yaml
var defsFS embed.FS

// defFiles maps supported schema versions to their embedded definition files
var defFiles = map[string]string{
	"IFC4":   "defs/ifc4.yaml",
	"IFC2X3": "defs/ifc2x3.yaml",
}

// schemaFile mirrors the YAML layout of a definition file
type schemaFile struct {
	Schema  string              `yaml:"schema"`
	Defined map[string]string   `yaml:"defined"`
	Enums   map[string][]string `yaml:"enums"`
	Selects map[string][]string `yaml:"selects"`
	Types   map[string]*typeDef `yaml:"types"`
}

type typeDef struct {
	Supertype  string    `yaml:"supertype"`
	Abstract   bool      `yaml:"abstract"`
	Attributes []attrDef `yaml:"attributes"`
	Inverses   []string  `yaml:"inverses"`
	Rules      []ruleDef `yaml:"rules"`
}

type attrDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type ruleDef struct {
	Name     string `yaml:"name"`
	Severity string `yaml:"severity"`
	Expr     string `yaml:"expr"`
	Message  string `yaml:"message"`
}

// Loader loads registries by schema version. Flattening a registry walks
// every supertype chain, so batch runs over many files memoize the result
// per version through an LRU cache.
type Loader struct {
	cache cache.Cache
}

// NewLoader creates a Loader with a cache sized for the embedded definitions
func NewLoader() *Loader {
	return NewLoaderWithCache(memorycache.New(&memorycache.Config{
		MaxEntries: len(defFiles),
		DefaultTTL: time.Hour,
	}))
}

// NewLoaderWithCache creates a Loader backed by the given cache
func NewLoaderWithCache(c cache.Cache) *Loader {
	return &Loader{cache: c}
}

// Load returns the registry for the given schema version, loading and
// flattening it on first use. An unsupported version is a fatal error.
func (l *Loader) Load(ctx context.Context, version string) (*Registry, error) {
	key := strings.ToUpper(version)
	if v, ok := l.cache.Get(ctx, key); ok {
		return v.(*Registry), nil
	}

	file, ok := defFiles[key]
	if !ok {
		return nil, &UnknownSchemaVersionError{Version: version}
	}
	raw, err := defsFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema definition %s: %w", file, err)
	}

	reg, err := buildRegistry(key, raw)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", key, err)
	}

	if err := l.cache.Set(ctx, key, reg, 0); err != nil {
		return nil, fmt.Errorf("failed to cache registry %s: %w", key, err)
	}
	return reg, nil
}

// Supported returns whether the version has an embedded definition
func (l *Loader) Supported(version string) bool {
	_, ok := defFiles[strings.ToUpper(version)]
	return ok
}

// buildRegistry parses a definition file and finalizes the registry
func buildRegistry(version string, raw []byte) (*Registry, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	reg := &Registry{
		Version: version,
		types:   make(map[string]*SchemaType),
		defined: make(map[string]Kind),
		enums:   make(map[string][]string),
		selects: make(map[string][]string),
	}

	for name, kind := range sf.Defined {
		k := Kind(kind)
		switch k {
		case KindString, KindInt, KindReal, KindBool, KindLogical:
			reg.defined[strings.ToUpper(name)] = k
		default:
			return nil, fmt.Errorf("defined type %s: unknown primitive kind %q", name, kind)
		}
	}
	for name, literals := range sf.Enums {
		reg.enums[strings.ToUpper(name)] = literals
	}
	for name, members := range sf.Selects {
		reg.selects[strings.ToUpper(name)] = members
	}

	for name, def := range sf.Types {
		t := &SchemaType{
			Name:      name,
			Supertype: def.Supertype,
			Abstract:  def.Abstract,
			Inverses:  def.Inverses,
		}
		for _, a := range def.Attributes {
			expr, err := parseTypeExpr(a.Type)
			if err != nil {
				return nil, fmt.Errorf("type %s attribute %s: %w", name, a.Name, err)
			}
			t.Attributes = append(t.Attributes, AttributeSpec{
				Name:     a.Name,
				Type:     expr,
				Optional: a.Optional,
			})
		}
		for _, r := range def.Rules {
			if r.Severity != "error" && r.Severity != "warning" {
				return nil, fmt.Errorf("type %s rule %s: invalid severity %q", name, r.Name, r.Severity)
			}
			t.Rules = append(t.Rules, &Rule{
				Name:     r.Name,
				Owner:    name,
				Severity: r.Severity,
				Expr:     r.Expr,
				Message:  r.Message,
			})
		}
		reg.types[strings.ToUpper(name)] = t
	}

	if err := flattenAll(reg); err != nil {
		return nil, err
	}
	reg.buildIndexes()
	return reg, nil
}

// flattenAll computes every type's flattened attribute list, inherited
// attributes first. Supertype chains are validated for existence and cycles.
func flattenAll(reg *Registry) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)

	var flatten func(t *SchemaType) error
	flatten = func(t *SchemaType) error {
		key := strings.ToUpper(t.Name)
		switch state[key] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("supertype cycle through %s", t.Name)
		}
		state[key] = visiting

		if t.Supertype != "" {
			super, ok := reg.types[strings.ToUpper(t.Supertype)]
			if !ok {
				return fmt.Errorf("type %s: unknown supertype %s", t.Name, t.Supertype)
			}
			if err := flatten(super); err != nil {
				return err
			}
			t.Flattened = append(t.Flattened, super.Flattened...)
		}
		t.Flattened = append(t.Flattened, t.Attributes...)

		state[key] = done
		return nil
	}

	for _, t := range reg.types {
		if err := flatten(t); err != nil {
			return err
		}
	}
	return nil
}

// parseTypeExpr parses an attribute type declaration:
// "IfcLabel", "SET [1:?] OF IfcObjectDefinition", "LIST [3:4] OF IfcInteger"
func parseTypeExpr(s string) (TypeExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeExpr{}, fmt.Errorf("empty type expression")
	}

	agg := AggregateNone
	switch {
	case strings.HasPrefix(s, "LIST "):
		agg = AggregateList
	case strings.HasPrefix(s, "SET "):
		agg = AggregateSet
	default:
		return TypeExpr{Base: s}, nil
	}

	open := strings.Index(s, "[")
	end := strings.Index(s, "]")
	if open < 0 || end < open {
		return TypeExpr{}, fmt.Errorf("malformed bounds in %q", s)
	}
	bounds := strings.SplitN(s[open+1:end], ":", 2)
	if len(bounds) != 2 {
		return TypeExpr{}, fmt.Errorf("malformed bounds in %q", s)
	}
	lo, err := parseBound(bounds[0])
	if err != nil {
		return TypeExpr{}, fmt.Errorf("malformed bounds in %q", s)
	}
	hi, err := parseBound(bounds[1])
	if err != nil {
		return TypeExpr{}, fmt.Errorf("malformed bounds in %q", s)
	}

	rest := strings.TrimSpace(s[end+1:])
	if !strings.HasPrefix(rest, "OF ") {
		return TypeExpr{}, fmt.Errorf("missing element type in %q", s)
	}
	base := strings.TrimSpace(strings.TrimPrefix(rest, "OF "))
	if base == "" {
		return TypeExpr{}, fmt.Errorf("missing element type in %q", s)
	}

	return TypeExpr{Aggregate: agg, Min: lo, Max: hi, Base: base}, nil
}

func parseBound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "?" {
		return Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid bound %q", s)
	}
	return n, nil
}
