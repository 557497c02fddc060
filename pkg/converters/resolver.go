package converters

import (
	"context"

	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// LoadResolver loads the project at path with c and resolves its
// dependencies through src. The returned resolver holds the built graph;
// when Build fails it is returned together with the error so callers can
// inspect the conflicted graph.
func LoadResolver(ctx context.Context, c Converter, path string, src resolver.Source, opts resolver.Options) (*resolver.Resolver, error) {
	p, err := Load(ctx, c, path)
	if err != nil {
		return nil, err
	}
	r := resolver.New(p, src, opts)
	return r, r.Build(ctx)
}

// LoadsResolver is [LoadResolver] for in-memory content.
func LoadsResolver(ctx context.Context, c Converter, content string, src resolver.Source, opts resolver.Options) (*resolver.Resolver, error) {
	p, err := Loads(ctx, c, content)
	if err != nil {
		return nil, err
	}
	r := resolver.New(p, src, opts)
	return r, r.Build(ctx)
}
