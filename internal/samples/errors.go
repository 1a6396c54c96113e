package samples

import "errors"

var (
	// ErrCorruptSample is yielded for sample files that cannot be decoded.
	ErrCorruptSample = errors.New("corrupt sample")

	// ErrInvalidOwner is returned when saving into a non-positive bucket id.
	ErrInvalidOwner = errors.New("invalid sample owner")
)
