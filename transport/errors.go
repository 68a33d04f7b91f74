package transport

import "errors"

// ErrInvalidTick is returned by Run for a tick interval that is not positive.
var ErrInvalidTick = errors.New("tick interval must be positive")
