package resolver

import (
	"context"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Source supplies version and dependency metadata to the resolver.
//
// Implementations may query a package index, inspect a local directory or
// read a VCS reference. Timeouts and retries are the implementation's
// concern; the resolver treats any error as a fetch failure.
type Source interface {
	// ResolveCandidate picks a concrete release of name that satisfies c.
	// link is the merged requirement's code source (nil for the registry).
	// It returns nil and no error when nothing satisfies c.
	ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*Candidate, error)

	// FetchDependencies returns the dependencies c declares. Requirements
	// guarded by an extra must be marked Optional.
	FetchDependencies(ctx context.Context, c Candidate) ([]models.Requirement, error)
}

// Candidate is a concrete release chosen for a node.
type Candidate struct {
	Name    string
	Version string
	Link    links.Link // where the release comes from (nil = registry)
	Hashes  []string   // artifact hashes ("sha256:...")
}

// SourceFunc adapts a pair of functions to [Source].
type SourceFunc struct {
	Resolve func(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*Candidate, error)
	Fetch   func(ctx context.Context, c Candidate) ([]models.Requirement, error)
}

func (f SourceFunc) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*Candidate, error) {
	return f.Resolve(ctx, name, c, link)
}

func (f SourceFunc) FetchDependencies(ctx context.Context, c Candidate) ([]models.Requirement, error) {
	if f.Fetch == nil {
		return nil, nil
	}
	return f.Fetch(ctx, c)
}
