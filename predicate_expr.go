package profiles

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator executes binding predicates using github.com/expr-lang/expr.
type exprEvaluator struct{}

// NewExprEvaluator constructs a PredicateEvaluator backed by expr-lang/expr.
func NewExprEvaluator() PredicateEvaluator {
	return &exprEvaluator{}
}

// Evaluate compiles and runs expression against the binding.
func (e *exprEvaluator) Evaluate(binding Binding, expression string) (bool, error) {
	predicate, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return predicate.Match(binding)
}

// Compile type-checks expression against the binding environment.
func (e *exprEvaluator) Compile(expression string) (Predicate, error) {
	if expression == "" {
		return nil, wrapPredicateError("expr", expression, "", fmt.Errorf("expression must not be empty"))
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(bindingEnvironment(Binding{})),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, wrapPredicateError("expr", expression, "", err)
	}
	return &exprPredicate{program: program, expression: expression}, nil
}

type exprPredicate struct {
	program    *exprvm.Program
	expression string
}

func (p *exprPredicate) Match(binding Binding) (bool, error) {
	out, err := exprlang.Run(p.program, bindingEnvironment(binding))
	if err != nil {
		return false, wrapPredicateError("expr", p.expression, "", err)
	}
	return asBool("expr", p.expression, out)
}
