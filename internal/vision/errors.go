package vision

import "errors"

var (
	// ErrResourceUnavailable is returned when the camera cannot be opened or read.
	ErrResourceUnavailable = errors.New("capture device unavailable")

	// ErrExhausted is returned by finite sources after the last frame.
	ErrExhausted = errors.New("frame source exhausted")
)
