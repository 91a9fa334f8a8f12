package profiles

import "slices"

// ValidateActiveProfiles fails with a ConflictError when more than one known
// profile is already active. Unknown profiles are ignored. Offending profiles
// are reported in activation order.
func ValidateActiveProfiles(active []string, rules *RuleTable) error {
	var offending []string
	for _, profile := range active {
		if rules.Has(profile) && !slices.Contains(offending, profile) {
			offending = append(offending, profile)
		}
	}
	if len(offending) <= 1 {
		return nil
	}
	return &ConflictError{
		Kind:      ConflictManual,
		Known:     tagStrings(rules.Tags()),
		Rules:     rules.String(),
		Offending: offending,
	}
}
