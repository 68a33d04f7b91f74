package config

import "errors"

// ErrInvalidFrameRate is returned for a frame rate that is not positive.
var ErrInvalidFrameRate = errors.New("frame rate must be positive")
