package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/observability"
)

const (
	DefaultWorkers  = 20   // Default concurrent expansions per round
	DefaultMaxDepth = 50   // Default maximum dependency depth
	DefaultMaxNodes = 5000 // Default maximum packages to expand
)

// Options configures graph resolution.
type Options struct {
	Workers  int                  // Concurrent expansions per round (default: 20)
	MaxDepth int                  // Nodes deeper than this stay pending (default: 50)
	MaxNodes int                  // Expansion budget per Build (default: 5000)
	Logger   func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Resolver resolves a project's transitive dependencies into a [Graph].
type Resolver struct {
	id      string
	project *models.Project
	graph   *Graph
	src     Source
	opts    Options
}

// New creates a Resolver rooted at project and seeds the graph with the
// project's direct dependencies. The project is not modified.
func New(project *models.Project, src Source, opts Options) *Resolver {
	if project == nil {
		project = &models.Project{}
	}
	r := &Resolver{
		id:      uuid.NewString(),
		project: project.Clone(),
		graph:   NewGraph(project.Name),
		src:     src,
		opts:    opts.WithDefaults(),
	}
	for _, dep := range r.project.Dependencies {
		_ = r.graph.AddRequirement(r.graph.Root(), dep)
	}
	return r
}

// ID returns the run identifier used in log lines.
func (r *Resolver) ID() string { return r.id }

// Project returns the root project.
func (r *Resolver) Project() *models.Project { return r.project }

// Graph returns the dependency graph.
func (r *Resolver) Graph() *Graph { return r.graph }

// Expand resolves one [Pending] node: it asks the source for a candidate
// satisfying the merged constraint, adds the candidate's dependencies to the
// graph and marks the node [Resolved]. A node in any other state is left
// alone, so revisiting a name on a cycle is only a merge.
//
// Source failures become node states, not errors: no candidate makes the
// node [Conflicted] and a fetch error makes it [Unreachable] ([Ignored] when
// only optional dependents need it). The fetch runs unlocked; recording its
// result is serialized with every other graph change. If the requirement
// narrowed past the candidate meanwhile, the node goes back to [Pending].
// Expand returns an error only for an unknown node or a cancelled context,
// in which case the node returns to [Pending].
func (r *Resolver) Expand(ctx context.Context, name string) error {
	n := r.graph.lookup(models.NormalizeName(name))
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}

	n.mu.Lock()
	if n.state != Pending {
		n.mu.Unlock()
		return nil
	}
	n.state = Resolving
	req := n.req.Clone()
	gen := n.gen
	depth := n.depth
	n.mu.Unlock()

	hooks := observability.Resolver()
	hooks.OnExpandStart(ctx, n.key)
	start := time.Now()

	cand, deps, err := r.fetch(ctx, req)

	r.graph.apply.Lock()
	defer r.graph.apply.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			n.reset(Resolving, Pending)
			hooks.OnExpandComplete(ctx, n.key, "", time.Since(start), ctx.Err())
			return ctx.Err()
		}
		r.unreachable(n, err)
		hooks.OnExpandComplete(ctx, n.key, "", time.Since(start), err)
		return nil
	}
	if cand == nil {
		n.mu.Lock()
		switch {
		case n.removed || n.state != Resolving:
		case n.gen != gen:
			// The requirement changed while the source was asked.
			n.state = Pending
		default:
			n.conflict("no candidate satisfies " + describe(req))
			hooks.OnConflict(ctx, n.key, n.reason)
		}
		n.mu.Unlock()
		hooks.OnExpandComplete(ctx, n.key, "", time.Since(start), nil)
		return nil
	}

	n.mu.Lock()
	switch {
	case n.removed || n.state != Resolving:
		// Conflicted or withdrawn while the fetch was in flight.
		n.mu.Unlock()
		hooks.OnExpandComplete(ctx, n.key, cand.Version, time.Since(start), nil)
		return nil
	case n.gen != gen && !n.keeps(*cand):
		// The requirement narrowed past the candidate; try again next round.
		n.state = Pending
		n.mu.Unlock()
		r.opts.Logger("[%s] %s %s no longer satisfies %s, retrying", r.id[:8], n.key, cand.Version, n.req.Constraint)
		hooks.OnExpandComplete(ctx, n.key, cand.Version, time.Since(start), nil)
		return nil
	}
	n.state = Resolved
	n.candidate = *cand
	n.deps = depNames(deps)
	optional := n.req.Optional
	n.mu.Unlock()

	for _, dep := range deps {
		if !n.vouches() {
			break
		}
		dep.Optional = dep.Optional || optional
		if err := r.graph.add(n.key, dep, depth+1); err != nil {
			var ce *ConstraintConflictError
			if errors.As(err, &ce) {
				hooks.OnConflict(ctx, ce.Name, ce.Reason)
			}
		}
	}
	r.opts.Logger("[%s] resolved %s %s (%d deps)", r.id[:8], n.key, cand.Version, len(deps))
	hooks.OnExpandComplete(ctx, n.key, cand.Version, time.Since(start), nil)
	return nil
}

// vouches reports whether the node still stands behind its dependencies:
// adding one of them can withdraw the node itself.
func (n *node) vouches() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.removed && n.state == Resolved
}

func (r *Resolver) fetch(ctx context.Context, req models.Requirement) (*Candidate, []models.Requirement, error) {
	cand, err := r.src.ResolveCandidate(ctx, req.Name, req.Constraint, req.Link)
	if err != nil || cand == nil {
		return nil, nil, err
	}
	if cand.Name == "" {
		cand.Name = req.Name
	}
	deps, err := r.src.FetchDependencies(ctx, *cand)
	if err != nil {
		return nil, nil, &FetchFailure{Name: req.Key(), Version: cand.Version, Err: err}
	}
	return cand, deps, nil
}

func (r *Resolver) unreachable(n *node, err error) {
	var ff *FetchFailure
	if !errors.As(err, &ff) {
		ff = &FetchFailure{Name: n.key, Err: err}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.removed || n.state != Resolving {
		return
	}
	n.state = Unreachable
	if n.req.Optional {
		n.state = Ignored
	}
	n.reason = ff.Err.Error()
	n.err = ff
	r.opts.Logger("[%s] fetch failed: %s: %v", r.id[:8], n.key, ff.Err)
}

func (n *node) reset(from, to State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == from {
		n.state = to
	}
}

func allows(req models.Requirement, version string) bool {
	if !links.IsRegistry(req.Link) || version == "" || req.Constraint.IsAny() {
		return true
	}
	return req.Constraint.Check(version)
}

func describe(req models.Requirement) string {
	if !links.IsRegistry(req.Link) {
		return req.Link.String()
	}
	if req.Constraint.IsAny() {
		return "any version"
	}
	return req.Constraint.String()
}

func depNames(deps []models.Requirement) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Key())
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Build expands the graph breadth-first until no expandable node remains.
//
// Each round expands every [Pending] node (sorted by name) with at most
// Options.Workers concurrent expansions, then joins. Conflicts are checked
// at every join point: if any node is [Conflicted], Build stops and returns
// a [*ConflictsError] listing all of them. Nodes no longer reachable from
// the root are dropped between rounds. Unreachable nodes do not stop the
// build; Flatten reports them. Nodes beyond MaxDepth or past the MaxNodes
// budget stay [Pending].
func (r *Resolver) Build(ctx context.Context) (err error) {
	start := time.Now()
	rounds, expanded := 0, 0
	defer func() {
		observability.Resolver().OnBuildComplete(ctx, r.graph.Len(), rounds, time.Since(start), err)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.graph.prune()
		if conflicts := r.graph.Conflicts(); len(conflicts) > 0 {
			return &ConflictsError{Conflicts: conflicts}
		}

		batch := r.graph.pending(r.opts.MaxDepth)
		if len(batch) == 0 {
			return nil
		}
		if budget := r.opts.MaxNodes - expanded; len(batch) > budget {
			if budget <= 0 {
				r.opts.Logger("[%s] node budget of %d reached, %d nodes left pending", r.id[:8], r.opts.MaxNodes, len(batch))
				return nil
			}
			batch = batch[:budget]
		}

		rounds++
		expanded += len(batch)
		r.opts.Logger("[%s] round %d: expanding %d nodes", r.id[:8], rounds, len(batch))
		if err := r.round(ctx, batch); err != nil {
			return err
		}
	}
}

func (r *Resolver) round(ctx context.Context, batch []string) error {
	jobs := make(chan string)
	var wg sync.WaitGroup
	for range min(r.opts.Workers, len(batch)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if ctx.Err() != nil {
					continue
				}
				_ = r.Expand(ctx, name)
			}
		}()
	}

	var err error
feed:
	for _, name := range batch {
		select {
		case jobs <- name:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// Flatten reduces the graph to one Requirement per package, sorted by name.
//
// Flatten is the completeness gate: if any node is not [Resolved] or
// [Ignored], it returns an [*UnresolvedGraphError] listing exactly those
// nodes and no requirements. Ignored nodes are left out of the result. With
// lock set, each requirement carries the chosen version and hashes.
func (r *Resolver) Flatten(lock bool) (reqs []models.Requirement, err error) {
	nodes := r.graph.Nodes()
	defer func() {
		observability.Resolver().OnFlatten(context.Background(), len(reqs), lock, err)
	}()

	var bad []NodeStatus
	for _, n := range nodes {
		if !n.State.Flattenable() {
			bad = append(bad, NodeStatus{Name: n.Name, State: n.State, Reason: n.Reason})
		}
	}
	if len(bad) > 0 {
		return nil, &UnresolvedGraphError{Nodes: bad}
	}

	reqs = make([]models.Requirement, 0, len(nodes))
	for _, n := range nodes {
		if n.State == Ignored {
			continue
		}
		req := n.Requirement
		if lock {
			req.Version = n.Version
			req.Hashes = n.Hashes
		}
		reqs = append(reqs, req)
	}
	models.SortRequirements(reqs)
	return reqs, nil
}

// Resolve runs Build and Flatten.
func (r *Resolver) Resolve(ctx context.Context, lock bool) ([]models.Requirement, error) {
	if err := r.Build(ctx); err != nil {
		return nil, err
	}
	return r.Flatten(lock)
}
