package recon

import "errors"

// ErrNotFound indicates a requested job does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates malformed input to a public operation.
// Validation errors are never retried.
var ErrValidation = errors.New("validation failed")
