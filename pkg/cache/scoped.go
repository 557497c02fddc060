package cache

import (
	"context"
	"time"
)

// Scoped prefixes every key before handing it to the inner cache, so that
// several sources or tenants can share one backend.
//
//	pypi := cache.NewScoped(backend, "pypi:")
//	pypi.Set(ctx, "requests", data, ttl) // stored as "pypi:requests"
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped wraps inner. A nil inner behaves like [NullCache]. Scoping an
// already scoped cache concatenates the prefixes.
func NewScoped(inner Cache, prefix string) *Scoped {
	if inner == nil {
		inner = NewNullCache()
	}
	if s, ok := inner.(*Scoped); ok {
		return &Scoped{inner: s.inner, prefix: s.prefix + prefix}
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Prefix returns the key prefix.
func (s *Scoped) Prefix() string { return s.prefix }

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the inner cache.
func (s *Scoped) Close() error { return s.inner.Close() }

var _ Cache = (*Scoped)(nil)
