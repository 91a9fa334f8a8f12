//go:build !js_eval

package profiles

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator() PredicateEvaluator {
	return nil
}

func isJSEvaluator(PredicateEvaluator) bool {
	return false
}
