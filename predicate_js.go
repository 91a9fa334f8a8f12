//go:build js_eval

package profiles

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct{}

// NewJSEvaluator constructs a PredicateEvaluator backed by goja.
func NewJSEvaluator() PredicateEvaluator {
	return &jsEvaluator{}
}

func (e *jsEvaluator) Evaluate(binding Binding, expression string) (bool, error) {
	predicate, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return predicate.Match(binding)
}

func (e *jsEvaluator) Compile(expression string) (Predicate, error) {
	if expression == "" {
		return nil, wrapPredicateError("js", expression, "", fmt.Errorf("expression must not be empty"))
	}
	program, err := goja.Compile("", wrapExpression(expression), false)
	if err != nil {
		return nil, wrapPredicateError("js", expression, "", err)
	}
	return &jsPredicate{program: program, expression: expression}, nil
}

type jsPredicate struct {
	program    *goja.Program
	expression string
}

// Match runs the program in a fresh runtime; goja runtimes are not safe for
// concurrent use.
func (p *jsPredicate) Match(binding Binding) (bool, error) {
	vm := goja.New()
	for key, value := range bindingEnvironment(binding) {
		if err := vm.Set(key, value); err != nil {
			return false, wrapPredicateError("js", p.expression, "", err)
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return false, wrapPredicateError("js", p.expression, "", err)
	}
	return asBool("js", p.expression, value.Export())
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func isJSEvaluator(e PredicateEvaluator) bool {
	_, ok := e.(*jsEvaluator)
	return ok
}
