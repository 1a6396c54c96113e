package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned when registering an id that already exists.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrCorruptRecord is returned when a persisted record fails schema validation.
	ErrCorruptRecord = errors.New("corrupt registry record")

	// ErrInvalidIdentity is returned when an identity violates its invariants.
	ErrInvalidIdentity = errors.New("invalid identity")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIdentity, fmt.Sprintf(format, args...))
}
