package source

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// DefaultCacheSize is the number of lookups [Cached] keeps.
const DefaultCacheSize = 4096

// Cached memoizes another source in a bounded in-process LRU. "No
// candidate" answers are cached too; errors are not.
type Cached struct {
	inner      resolver.Source
	candidates *lru.Cache[string, *resolver.Candidate]
	deps       *lru.Cache[string, []models.Requirement]
}

// NewCached wraps inner with LRUs of size entries each
// (DefaultCacheSize when size <= 0).
func NewCached(inner resolver.Source, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	candidates, err := lru.New[string, *resolver.Candidate](size)
	if err != nil {
		return nil, err
	}
	deps, err := lru.New[string, []models.Requirement](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, candidates: candidates, deps: deps}, nil
}

func (c *Cached) ResolveCandidate(ctx context.Context, name string, con constraint.Constraint, link links.Link) (*resolver.Candidate, error) {
	key := models.NormalizeName(name) + "|" + con.String() + "|" + linkKey(link)
	if cand, ok := c.candidates.Get(key); ok {
		return cloneCandidate(cand), nil
	}
	cand, err := c.inner.ResolveCandidate(ctx, name, con, link)
	if err != nil {
		return nil, err
	}
	c.candidates.Add(key, cloneCandidate(cand))
	return cand, nil
}

func (c *Cached) FetchDependencies(ctx context.Context, cand resolver.Candidate) ([]models.Requirement, error) {
	key := models.NormalizeName(cand.Name) + "|" + cand.Version + "|" + linkKey(cand.Link)
	if deps, ok := c.deps.Get(key); ok {
		return cloneReqs(deps), nil
	}
	deps, err := c.inner.FetchDependencies(ctx, cand)
	if err != nil {
		return nil, err
	}
	c.deps.Add(key, cloneReqs(deps))
	return deps, nil
}

// Len returns the number of cached candidate and dependency lookups.
func (c *Cached) Len() int { return c.candidates.Len() + c.deps.Len() }

func linkKey(l links.Link) string {
	if links.IsRegistry(l) {
		return ""
	}
	return string(l.Kind()) + ":" + l.String()
}

func cloneCandidate(c *resolver.Candidate) *resolver.Candidate {
	if c == nil {
		return nil
	}
	out := *c
	out.Hashes = slices.Clone(c.Hashes)
	return &out
}

var _ resolver.Source = (*Cached)(nil)
