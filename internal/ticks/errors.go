package ticks

import "errors"

// ErrInvalidInput marks a malformed tick: missing required fields or a
// value outside its domain. It never causes a state change and is never
// published or retried — the caller decides what to do with it.
var ErrInvalidInput = errors.New("invalid input")
