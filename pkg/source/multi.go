package source

import (
	"context"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// Multi sends registry lookups to Registry and everything else to Links.
type Multi struct {
	Registry resolver.Source
	Links    resolver.Source
}

func (m Multi) pick(l links.Link) resolver.Source {
	if links.IsRegistry(l) {
		return m.Registry
	}
	return m.Links
}

func (m Multi) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*resolver.Candidate, error) {
	return m.pick(link).ResolveCandidate(ctx, name, c, link)
}

func (m Multi) FetchDependencies(ctx context.Context, c resolver.Candidate) ([]models.Requirement, error) {
	return m.pick(c.Link).FetchDependencies(ctx, c)
}

var _ resolver.Source = Multi{}
