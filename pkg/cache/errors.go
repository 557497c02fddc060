package cache

import "errors"

// ErrUnsupportedBackend is returned when a cache URL names an unknown scheme.
var ErrUnsupportedBackend = errors.New("unsupported cache backend")
