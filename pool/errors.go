package pool

import "errors"

// ErrInvalidSize indicates an allocation request for zero or negative
// bytes.
var ErrInvalidSize = errors.New("pool: allocation size must be positive")
