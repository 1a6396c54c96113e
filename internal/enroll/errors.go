package enroll

import "errors"

// ErrIncomplete is returned when the frame source ends before the quota is met.
var ErrIncomplete = errors.New("enrollment ended before the sample quota was reached")
