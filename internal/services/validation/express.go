package validation

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/asakaida/ifcheck/internal/entities"
	"github.com/asakaida/ifcheck/internal/schema"
)

// refDepth bounds how far references are expanded when building the rule
// activation. Depth 0 still exposes the target's id and type so rules can
// test them.
const refDepth = 2

// RuleEngine evaluates EXPRESS WHERE rules over entities. Every rule's CEL
// predicate is compiled exactly once when the engine binds to a registry;
// evaluation then only builds activations and runs the cached programs.
type RuleEngine struct {
	registry *schema.Registry
	env      *cel.Env
	programs map[string]cel.Program // keyed by owner type + "/" + rule name
}

// NewRuleEngine compiles all WHERE rules of the registry. A rule that does
// not compile, or whose expression is not boolean, is a defect in the schema
// definitions and fails engine construction.
func NewRuleEngine(registry *schema.Registry) (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("self", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}

	e := &RuleEngine{
		registry: registry,
		env:      env,
		programs: make(map[string]cel.Program),
	}

	for _, name := range registry.TypeNames() {
		t, err := registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, rule := range t.Rules {
			key := ruleKey(rule)
			ast, iss := env.Compile(rule.Expr)
			if iss != nil && iss.Err() != nil {
				return nil, fmt.Errorf("rule %s does not compile: %w", key, iss.Err())
			}
			if ast.OutputType() != cel.BoolType {
				return nil, fmt.Errorf("rule %s must evaluate to bool, got %s", key, ast.OutputType())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("rule %s program creation failed: %w", key, err)
			}
			e.programs[key] = prg
		}
	}

	return e, nil
}

// Evaluate runs all applicable WHERE rules over every entity in ascending id
// order. Rules never repair data: passing entities contribute nothing,
// failing ones contribute one issue per failed rule.
func (e *RuleEngine) Evaluate(g *entities.Graph) []entities.ValidationIssue {
	return e.EvaluateRange(g, g.IDs())
}

// EvaluateRange runs the rules over the given entities only
func (e *RuleEngine) EvaluateRange(g *entities.Graph, ids []int64) []entities.ValidationIssue {
	var issues []entities.ValidationIssue
	for _, id := range ids {
		ent, ok := g.Get(id)
		if !ok {
			continue
		}
		rules := e.registry.RulesFor(ent.Type)
		if len(rules) == 0 {
			continue
		}
		self := e.buildSelf(g, ent, refDepth)
		activation := map[string]interface{}{"self": self}
		for _, rule := range rules {
			prg, ok := e.programs[ruleKey(rule)]
			if !ok {
				continue
			}
			out, _, err := prg.Eval(activation)
			if err != nil {
				// An expression that cannot be evaluated against this
				// entity has not been satisfied by it.
				issues = append(issues, e.issueFor(rule, ent,
					fmt.Sprintf("rule %s could not be evaluated: %v", rule.Name, err)))
				continue
			}
			passed, ok := out.Value().(bool)
			if !ok || !passed {
				issues = append(issues, e.issueFor(rule, ent, interpolate(rule.Message, ent)))
			}
		}
	}
	return issues
}

func (e *RuleEngine) issueFor(rule *schema.Rule, ent *entities.Entity, message string) entities.ValidationIssue {
	severity := entities.SeverityError
	if rule.Severity == "warning" {
		severity = entities.SeverityWarning
	}
	return entities.ValidationIssue{
		Severity: severity,
		EntityID: ent.ID,
		Check:    rule.Name,
		Message:  message,
		Source:   entities.SourceExpress,
	}
}

// buildSelf converts an entity into the activation map the rules see.
// Attribute names come from the flattened schema specs; omitted and derived
// attributes are left out entirely so has(self.X) behaves as absence.
func (e *RuleEngine) buildSelf(g *entities.Graph, ent *entities.Entity, depth int) map[string]interface{} {
	self := map[string]interface{}{
		"id":   ent.ID,
		"type": ent.Type,
	}
	t, err := e.registry.Lookup(ent.Type)
	if err != nil {
		return self
	}
	for i, spec := range t.Flattened {
		v := ent.Attr(i)
		if v == nil {
			continue
		}
		converted, ok := e.convertValue(g, v, depth)
		if !ok {
			continue
		}
		self[spec.Name] = converted
	}
	return self
}

// convertValue maps a parsed value to the CEL-visible representation. The
// second return is false for the absence markers.
func (e *RuleEngine) convertValue(g *entities.Graph, v entities.Value, depth int) (interface{}, bool) {
	switch val := v.(type) {
	case *entities.StringValue:
		return val.Val, true
	case *entities.IntValue:
		return val.Val, true
	case *entities.RealValue:
		return val.Val, true
	case *entities.BoolValue:
		return val.Val, true
	case *entities.EnumValue:
		return val.Val, true
	case *entities.TypedValue:
		return e.convertValue(g, val.Inner, depth)
	case *entities.ListValue:
		out := make([]interface{}, 0, len(val.Elements))
		for _, elem := range val.Elements {
			converted, ok := e.convertValue(g, elem, depth)
			if !ok {
				continue
			}
			out = append(out, converted)
		}
		return out, true
	case *entities.RefValue:
		target, ok := g.Get(val.ID)
		if !ok {
			return map[string]interface{}{"id": val.ID}, true
		}
		if depth <= 0 {
			return map[string]interface{}{"id": target.ID, "type": target.Type}, true
		}
		return e.buildSelf(g, target, depth-1), true
	case *entities.OmittedValue, *entities.DerivedValue:
		return nil, false
	default:
		return nil, false
	}
}

func ruleKey(rule *schema.Rule) string {
	return rule.Owner + "/" + rule.Name
}

// interpolate fills the {id} and {type} placeholders of a rule message
func interpolate(message string, ent *entities.Entity) string {
	message = strings.ReplaceAll(message, "{id}", fmt.Sprintf("#%d", ent.ID))
	message = strings.ReplaceAll(message, "{type}", ent.Type)
	return message
}
