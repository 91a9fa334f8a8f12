package profiles

import (
	"fmt"
)

// PredicateEvaluator compiles Rule.When expressions into reusable predicates.
type PredicateEvaluator interface {
	Evaluate(binding Binding, expr string) (bool, error)
	Compile(expr string) (Predicate, error)
}

// Predicate is a compiled binding filter.
type Predicate interface {
	Match(binding Binding) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(Binding) (bool, error)

// Match implements Predicate.
func (f PredicateFunc) Match(binding Binding) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(binding)
}

// bindingEnvironment exposes a binding to expression engines. Every variable
// is always present so predicates can reference them without guards.
func bindingEnvironment(binding Binding) map[string]any {
	tags := binding.Tags
	if tags == nil {
		tags = []string{}
	}
	credentials := binding.Credentials
	if credentials == nil {
		credentials = map[string]any{}
	}
	return map[string]any{
		"name":        binding.Name,
		"label":       binding.Label,
		"plan":        binding.Plan,
		"tags":        tags,
		"credentials": credentials,
	}
}

func asBool(engine, expr string, value any) (bool, error) {
	result, ok := value.(bool)
	if !ok {
		return false, &PredicateError{
			Engine: engine,
			Expr:   expr,
			Err:    fmt.Errorf("predicate returned %T, want bool", value),
		}
	}
	return result, nil
}

func evaluatorEngineName(e PredicateEvaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
