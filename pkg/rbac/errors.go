package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the user is not in the registry
	ErrNotFound = errors.New("user not found")

	// ErrDeactivated is returned when the user exists but is inactive
	ErrDeactivated = errors.New("user deactivated")

	// ErrInvalidRole is returned when the user's role is not in the matrix
	ErrInvalidRole = errors.New("invalid role")

	// ErrPersistence wraps backend load and save failures
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidInput is returned when mutation input fails validation
	ErrInvalidInput = errors.New("invalid input")
)

// ResolveError describes why a user could not be resolved. It matches the
// ErrNotFound, ErrDeactivated and ErrInvalidRole sentinels with errors.Is.
type ResolveError struct {
	Kind   error
	UserID string
	Role   string
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ErrInvalidRole:
		return fmt.Sprintf("resolve %q: %v %q", e.UserID, e.Kind, e.Role)
	default:
		return fmt.Sprintf("resolve %q: %v", e.UserID, e.Kind)
	}
}

func (e *ResolveError) Unwrap() error { return e.Kind }

// Outcome returns a short label for metrics and spans
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDeactivated):
		return "deactivated"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	default:
		return "error"
	}
}

func persistenceError(op, doc string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrPersistence, op, doc, err)
}
