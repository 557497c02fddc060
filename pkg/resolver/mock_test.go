package resolver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// mockSource serves releases from an in-memory index:
// name -> version -> requirement lines.
type mockSource struct {
	index map[string]map[string][]string
	fail  map[string]error

	mu      sync.Mutex
	fetched map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	block       chan struct{} // when set, every fetch waits on it or ctx
}

func newMockSource(index map[string]map[string][]string) *mockSource {
	return &mockSource{index: index, fail: map[string]error{}, fetched: map[string]int{}}
}

func (m *mockSource) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*Candidate, error) {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if cur <= prev || m.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := models.NormalizeName(name)
	m.mu.Lock()
	m.fetched[key]++
	m.mu.Unlock()

	if err := m.fail[key]; err != nil {
		return nil, err
	}
	if !links.IsRegistry(link) {
		return &Candidate{Name: name, Version: "0.1.0", Link: link}, nil
	}
	versions, ok := m.index[key]
	if !ok {
		return nil, fmt.Errorf("%s: not found", key)
	}
	v, ok := constraint.MaxSatisfying(c, slices.Collect(maps.Keys(versions)))
	if !ok {
		return nil, nil
	}
	return &Candidate{Name: name, Version: v, Hashes: []string{"sha256:" + key + v}}, nil
}

func (m *mockSource) FetchDependencies(ctx context.Context, c Candidate) ([]models.Requirement, error) {
	lines := m.index[models.NormalizeName(c.Name)][c.Version]
	reqs := make([]models.Requirement, 0, len(lines))
	for _, l := range lines {
		r, err := models.ParseRequirement(l)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

func (m *mockSource) fetchCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetched[name]
}

func project(name string, deps ...string) *models.Project {
	p := &models.Project{Name: name}
	for _, d := range deps {
		p.AddDependency(models.MustParseRequirement(d))
	}
	return p
}
