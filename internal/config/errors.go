package config

import "errors"

// ErrInvalidConfig is returned by Validate for values that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")
