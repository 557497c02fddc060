package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/cache"
	"github.com/ko3luhbka/dephell/pkg/cache/mongocache"
	"github.com/ko3luhbka/dephell/pkg/cache/rediscache"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/resolver"
	"github.com/ko3luhbka/dephell/pkg/source"
	"github.com/ko3luhbka/dephell/pkg/source/pypi"
)

// OpenCache returns the cache backend selected by c.Cache.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	spec := c.Cache
	switch {
	case spec == "" || spec == "file":
		dir, err := cache.DefaultDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	case spec == "none" || spec == "off":
		return cache.NewNullCache(), nil
	case strings.HasPrefix(spec, "file:"):
		dir := strings.TrimPrefix(strings.TrimPrefix(spec, "file:"), "//")
		return cache.NewFileCache(dir)
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"), strings.HasPrefix(spec, "unix://"):
		return rediscache.New(spec)
	case strings.HasPrefix(spec, "mongodb://"), strings.HasPrefix(spec, "mongodb+srv://"):
		mc, err := mongocache.New(ctx, spec, mongocache.Options{})
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureIndexes(ctx); err != nil {
			mc.Close()
			return nil, fmt.Errorf("mongo cache indexes: %w", err)
		}
		return mc, nil
	}
	return nil, fmt.Errorf("%w: %q", cache.ErrUnsupportedBackend, spec)
}

// NewSource builds the metadata source: PyPI for registry requirements,
// local project files (resolved against base) for path links, memoized in
// an in-process LRU. With a nil reg every non-registry link is refused,
// which is what a shared server wants.
func (c *Config) NewSource(backend cache.Cache, reg *converters.Registry, base string, refresh bool) (resolver.Source, error) {
	index := pypi.New(backend, pypi.Options{
		IndexURL: c.IndexURL,
		TTL:      c.CacheTTL,
		Refresh:  refresh,
	})
	var links resolver.Source = source.NewMemory()
	if reg != nil {
		links = source.NewLocal(reg, base)
	}
	cached, err := source.NewCached(source.Multi{Registry: index, Links: links}, 0)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
