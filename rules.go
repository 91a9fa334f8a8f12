package profiles

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Rule maps one profile to the service tags a binding must carry to imply it.
// When optionally narrows the match with a predicate over the binding.
type Rule struct {
	Profile  Tag
	Requires []string
	When     string
}

var (
	// ErrProfileRequired indicates a rule without a profile name.
	ErrProfileRequired = errors.New("profiles: rule profile must be provided")
	// ErrDuplicateProfile indicates a rule table received the same profile twice.
	ErrDuplicateProfile = errors.New("profiles: rule profiles must be unique")
	// ErrRequiredTagsEmpty indicates a rule with no required service tags.
	ErrRequiredTagsEmpty = errors.New("profiles: rule must require at least one tag")
)

// RuleTable is the immutable set of profile rules. It is the single source of
// truth for which bound-service tags imply which backing store.
type RuleTable struct {
	rules []compiledRule
}

type compiledRule struct {
	rule      Rule
	predicate Predicate
}

// RuleOption configures rule table construction.
type RuleOption func(*ruleTableConfig)

type ruleTableConfig struct {
	evaluator PredicateEvaluator
}

// WithPredicateEvaluator selects the engine used to compile Rule.When
// predicates. The expr engine is used when none is configured.
func WithPredicateEvaluator(evaluator PredicateEvaluator) RuleOption {
	return func(cfg *ruleTableConfig) {
		cfg.evaluator = evaluator
	}
}

// NewRuleTable validates rules and returns an immutable table sorted by
// profile name. Predicates are compiled here so a bad expression fails table
// construction rather than resolution.
func NewRuleTable(rules []Rule, opts ...RuleOption) (*RuleTable, error) {
	cfg := ruleTableConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	seen := make(map[Tag]struct{}, len(rules))
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		rule = cloneRule(rule)
		if strings.TrimSpace(string(rule.Profile)) == "" {
			return nil, ErrProfileRequired
		}
		if _, ok := seen[rule.Profile]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProfile, rule.Profile)
		}
		if len(rule.Requires) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrRequiredTagsEmpty, rule.Profile)
		}
		seen[rule.Profile] = struct{}{}

		entry := compiledRule{rule: rule}
		if rule.When != "" {
			evaluator := cfg.evaluator
			if evaluator == nil {
				evaluator = NewExprEvaluator()
			}
			predicate, err := evaluator.Compile(rule.When)
			if err != nil {
				return nil, wrapPredicateError(evaluatorEngineName(evaluator), rule.When, rule.Profile, err)
			}
			entry.predicate = predicate
		}
		compiled = append(compiled, entry)
	}

	sort.Slice(compiled, func(i, j int) bool {
		return compiled[i].rule.Profile < compiled[j].rule.Profile
	})
	return &RuleTable{rules: compiled}, nil
}

var defaultRules = mustRuleTable([]Rule{
	{Profile: TagMongoDB, Requires: []string{"mongodb"}},
	{Profile: TagPostgres, Requires: []string{"postgres"}},
	{Profile: TagMySQL, Requires: []string{"mysql"}},
	{Profile: TagRedis, Requires: []string{"redis"}},
	{Profile: TagOracle, Requires: []string{"oracle"}},
	{Profile: TagSQLServer, Requires: []string{"sqlserver"}},
})

// DefaultRules returns the built-in table covering the six supported stores.
func DefaultRules() *RuleTable {
	return defaultRules
}

func mustRuleTable(rules []Rule) *RuleTable {
	table, err := NewRuleTable(rules)
	if err != nil {
		panic(err)
	}
	return table
}

// Rules returns copies of the rules ordered by profile name.
func (t *RuleTable) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	for i := range t.rules {
		out[i] = cloneRule(t.rules[i].rule)
	}
	return out
}

// Tags returns the closed set of known profiles ordered by name.
func (t *RuleTable) Tags() []Tag {
	if t == nil {
		return nil
	}
	out := make([]Tag, len(t.rules))
	for i := range t.rules {
		out[i] = t.rules[i].rule.Profile
	}
	return out
}

// Has reports whether profile names a known rule.
func (t *RuleTable) Has(profile string) bool {
	if t == nil {
		return false
	}
	for i := range t.rules {
		if string(t.rules[i].rule.Profile) == profile {
			return true
		}
	}
	return false
}

// Len returns the number of rules in the table.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Implied returns the profiles the binding satisfies, ordered by name.
func (t *RuleTable) Implied(binding Binding) []Tag {
	tags, _ := t.implied(binding)
	return tags
}

// implied also reports predicate failures; a failing predicate counts as no
// match.
func (t *RuleTable) implied(binding Binding) ([]Tag, []error) {
	if t == nil {
		return nil, nil
	}
	var (
		tags []Tag
		errs []error
	)
	for _, entry := range t.rules {
		if !binding.HasTags(entry.rule.Requires) {
			continue
		}
		if entry.predicate != nil {
			ok, err := entry.predicate.Match(binding)
			if err != nil {
				errs = append(errs, wrapPredicateError("", entry.rule.When, entry.rule.Profile, err))
				continue
			}
			if !ok {
				continue
			}
		}
		tags = append(tags, entry.rule.Profile)
	}
	return tags, errs
}

// String renders the table as profile=[tags] pairs for diagnostics.
func (t *RuleTable) String() string {
	if t == nil || len(t.rules) == 0 {
		return "[]"
	}
	parts := make([]string, len(t.rules))
	for i, entry := range t.rules {
		parts[i] = fmt.Sprintf("%s=[%s]", entry.rule.Profile, strings.Join(entry.rule.Requires, ", "))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func cloneRule(rule Rule) Rule {
	return Rule{
		Profile:  rule.Profile,
		Requires: append([]string(nil), rule.Requires...),
		When:     rule.When,
	}
}
