package source

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

type release struct {
	deps   []models.Requirement
	hashes []string
}

// Memory is an in-process package index keyed by normalized name and
// version. It serves registry links only. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	pkgs map[string]map[string]release
}

// NewMemory returns an empty index.
func NewMemory() *Memory {
	return &Memory{pkgs: make(map[string]map[string]release)}
}

// Add registers a release whose dependencies are PEP 508 lines.
func (m *Memory) Add(name, version string, deps ...string) error {
	reqs := make([]models.Requirement, 0, len(deps))
	for _, line := range deps {
		r, err := models.ParseRequirement(line)
		if err != nil {
			return fmt.Errorf("source: %s %s: %w", name, version, err)
		}
		reqs = append(reqs, r)
	}
	m.AddRelease(name, version, reqs)
	return nil
}

// MustAdd is like [Memory.Add] but panics on error.
func (m *Memory) MustAdd(name, version string, deps ...string) *Memory {
	if err := m.Add(name, version, deps...); err != nil {
		panic(err)
	}
	return m
}

// AddRelease registers a release with parsed dependencies and artifact hashes.
func (m *Memory) AddRelease(name, version string, deps []models.Requirement, hashes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.NormalizeName(name)
	if m.pkgs[key] == nil {
		m.pkgs[key] = make(map[string]release)
	}
	m.pkgs[key][version] = release{deps: cloneReqs(deps), hashes: slices.Clone(hashes)}
}

// Versions returns the known versions of name, sorted ascending.
func (m *Memory) Versions(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Collect(maps.Keys(m.pkgs[models.NormalizeName(name)]))
	slices.SortFunc(out, func(a, b string) int {
		va, errA := constraint.ParseVersion(a)
		vb, errB := constraint.ParseVersion(b)
		if errA != nil || errB != nil {
			return cmpString(a, b)
		}
		return constraint.Compare(va, vb)
	})
	return out
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m *Memory) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*resolver.Candidate, error) {
	if !links.IsRegistry(link) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLink, link)
	}
	versions := m.Versions(name)
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	v, ok := constraint.MaxSatisfying(c, versions)
	if !ok {
		return nil, nil
	}
	m.mu.RLock()
	hashes := slices.Clone(m.pkgs[models.NormalizeName(name)][v].hashes)
	m.mu.RUnlock()
	return &resolver.Candidate{Name: name, Version: v, Hashes: hashes}, nil
}

func (m *Memory) FetchDependencies(ctx context.Context, c resolver.Candidate) ([]models.Requirement, error) {
	m.mu.RLock()
	rel, ok := m.pkgs[models.NormalizeName(c.Name)][c.Version]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, c.Name, c.Version)
	}
	return MarkOptional(cloneReqs(rel.deps)), nil
}

func cloneReqs(reqs []models.Requirement) []models.Requirement {
	out := make([]models.Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = r.Clone()
	}
	return out
}

var _ resolver.Source = (*Memory)(nil)
