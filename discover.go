package profiles

import (
	"slices"
)

// Discoverer enumerates the service bindings published by the hosting
// platform.
type Discoverer interface {
	Bindings() ([]Binding, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func() ([]Binding, error)

// Bindings implements Discoverer.
func (f DiscovererFunc) Bindings() ([]Binding, error) {
	if f == nil {
		return nil, nil
	}
	return f()
}

// StaticBindings is a fixed Discoverer, useful in tests and for local runs.
type StaticBindings []Binding

// Bindings implements Discoverer.
func (s StaticBindings) Bindings() ([]Binding, error) {
	out := make([]Binding, len(s))
	for i := range s {
		out[i] = s[i].clone()
	}
	return out, nil
}

// Inference is the outcome of mapping bindings onto the rule table.
type Inference struct {
	// Profile is empty when no binding implies a profile.
	Profile Tag
	// Source is the first binding, in discovery order, implying Profile.
	Source *Binding
	// PredicateErrors lists rule predicates that failed; each counted as no
	// match.
	PredicateErrors []error
}

// Found reports whether a profile was inferred.
func (i Inference) Found() bool {
	return i.Profile != ""
}

// InferProfile unions the profiles implied by every binding. More than one
// distinct profile is a ConflictError; the result does not depend on binding
// or rule order.
func InferProfile(bindings []Binding, rules *RuleTable) (Inference, error) {
	var (
		implied []Tag
		sources = map[Tag]int{}
		errs    []error
	)
	for idx, binding := range bindings {
		tags, predicateErrs := rules.implied(binding)
		errs = append(errs, predicateErrs...)
		for _, tag := range tags {
			if _, seen := sources[tag]; seen {
				continue
			}
			sources[tag] = idx
			implied = append(implied, tag)
		}
	}
	slices.Sort(implied)

	switch len(implied) {
	case 0:
		return Inference{PredicateErrors: errs}, nil
	case 1:
		source := bindings[sources[implied[0]]].clone()
		return Inference{Profile: implied[0], Source: &source, PredicateErrors: errs}, nil
	default:
		return Inference{PredicateErrors: errs}, &ConflictError{
			Kind:      ConflictInferred,
			Known:     tagStrings(rules.Tags()),
			Rules:     rules.String(),
			Offending: tagStrings(implied),
		}
	}
}
