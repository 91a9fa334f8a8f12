package profiles

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

type celEvaluator struct {
	env *celgo.Env
	err error
}

// NewCELEvaluator constructs a PredicateEvaluator backed by cel-go. Predicates
// see name, label and plan as strings, tags as list(string) and credentials as
// map(string, dyn).
func NewCELEvaluator() PredicateEvaluator {
	env, err := celgo.NewEnv(
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("label", celgo.StringType),
		celgo.Variable("plan", celgo.StringType),
		celgo.Variable("tags", celgo.ListType(celgo.StringType)),
		celgo.Variable("credentials", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
	return &celEvaluator{env: env, err: err}
}

func (e *celEvaluator) Evaluate(binding Binding, expression string) (bool, error) {
	predicate, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return predicate.Match(binding)
}

func (e *celEvaluator) Compile(expression string) (Predicate, error) {
	if expression == "" {
		return nil, wrapPredicateError("cel", expression, "", fmt.Errorf("expression must not be empty"))
	}
	if e.err != nil {
		return nil, wrapPredicateError("cel", expression, "", e.err)
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapPredicateError("cel", expression, "", issues.Err())
	}
	if !ast.OutputType().IsExactType(celgo.BoolType) {
		return nil, wrapPredicateError("cel", expression, "", fmt.Errorf("predicate must return bool, got %s", ast.OutputType()))
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, wrapPredicateError("cel", expression, "", err)
	}
	return &celPredicate{program: program, expression: expression}, nil
}

type celPredicate struct {
	program    celgo.Program
	expression string
}

func (p *celPredicate) Match(binding Binding) (bool, error) {
	out, _, err := p.program.Eval(bindingEnvironment(binding))
	if err != nil {
		return false, wrapPredicateError("cel", p.expression, "", err)
	}
	return asBool("cel", p.expression, out.Value())
}
