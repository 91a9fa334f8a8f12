package profiles

import (
	"errors"
	"fmt"
)

// PredicateError captures evaluator metadata alongside the originating error.
type PredicateError struct {
	Engine  string
	Expr    string
	Profile Tag
	Err     error
}

func (e *PredicateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("profiles: %s predicate %s profile=%s: %v", e.Engine, describeExpression(e.Expr), e.Profile, e.Err)
}

func (e *PredicateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapPredicateError(engine, expr string, profile Tag, err error) error {
	if err == nil {
		return nil
	}

	var predErr *PredicateError
	if errors.As(err, &predErr) {
		if predErr.Engine == "" {
			predErr.Engine = engine
		}
		if predErr.Expr == "" {
			predErr.Expr = expr
		}
		if predErr.Profile == "" {
			predErr.Profile = profile
		}
		return predErr
	}

	return &PredicateError{
		Engine:  engine,
		Expr:    expr,
		Profile: profile,
		Err:     err,
	}
}
