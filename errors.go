package profiles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflictingManualProfiles indicates more than one known profile was
	// already active before bootstrap.
	ErrConflictingManualProfiles = errors.New("profiles: conflicting manual profiles")
	// ErrConflictingInferredProfiles indicates the bound services imply more
	// than one distinct profile.
	ErrConflictingInferredProfiles = errors.New("profiles: conflicting inferred profiles")
)

// ConflictKind distinguishes the two fatal startup conflicts.
type ConflictKind int

const (
	ConflictManual ConflictKind = iota + 1
	ConflictInferred
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictManual:
		return "manual"
	case ConflictInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// ConflictError reports that more than one profile would be active.
// Known holds the closed profile set (rendered with required tags for
// inferred conflicts) and Offending the profiles that collided.
type ConflictError struct {
	Kind      ConflictKind
	Known     []string
	Rules     string
	Offending []string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ConflictManual:
		return fmt.Sprintf("profiles: only one active profile may be set among the following: [%s]. These profiles are active: [%s]",
			strings.Join(e.Known, ", "), strings.Join(e.Offending, ", "))
	case ConflictInferred:
		return fmt.Sprintf("profiles: only one service of the following types may be bound to this application: %s. These services are bound to the application: [%s]",
			e.Rules, strings.Join(e.Offending, ", "))
	default:
		return fmt.Sprintf("profiles: conflicting profiles [%s]", strings.Join(e.Offending, ", "))
	}
}

// Is matches the sentinel error for the conflict kind.
func (e *ConflictError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ConflictManual:
		return target == ErrConflictingManualProfiles
	case ConflictInferred:
		return target == ErrConflictingInferredProfiles
	default:
		return false
	}
}
