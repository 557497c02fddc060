package cache

import (
	"context"
	"time"
)

// NullCache backs `cache = "none"` (and "off") in dephell.toml. It is also
// what config.OpenCache returns when no user cache directory exists, and
// what an HTTP client without a backend falls back to. Every lookup misses,
// so each index request goes to the network.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
