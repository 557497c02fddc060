package resolver

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ko3luhbka/dephell/pkg/dag"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// DefaultRoot names the root node of a project without a name.
const DefaultRoot = "root"

// Graph is the shared dependency graph: an arena of nodes keyed by
// normalized package name.
//
// The arena map is guarded by one RWMutex and every node carries its own
// mutex for state reads and the Pending to Resolving transition. Anything
// that can touch several nodes runs under the apply mutex; fetches run
// outside it.
type Graph struct {
	root string

	apply sync.Mutex

	mu    sync.RWMutex
	nodes map[string]*node
}

// edge is one dependent's requirement on a node.
type edge struct {
	req   models.Requirement // Parents is the dependent alone
	depth int
}

type node struct {
	mu sync.Mutex

	key     string
	req     models.Requirement // merged over in, in parent order
	in      map[string]edge    // per dependent
	depth   int
	gen     int // bumped whenever req changes
	removed bool

	state     State
	candidate Candidate
	deps      []string
	reason    string
	err       error
}

// Node is a read-only snapshot of a graph node.
type Node struct {
	Name         string             // normalized name
	State        State              // resolution state
	Requirement  models.Requirement // merged requirement, Parents sorted
	Version      string             // chosen version (Resolved only)
	Link         links.Link         // chosen release's source
	Hashes       []string           // chosen release's hashes
	Dependencies []string           // normalized names, sorted
	Depth        int                // distance from the root
	Reason       string             // why the node is conflicted or unreachable
	Err          error              // *ConstraintConflictError or *FetchFailure
}

// NewGraph creates an empty graph whose root node is named root.
func NewGraph(root string) *Graph {
	root = models.NormalizeName(root)
	if root == "" {
		root = DefaultRoot
	}
	return &Graph{root: root, nodes: make(map[string]*node)}
}

// Root returns the root node name.
func (g *Graph) Root() string { return g.root }

// Len returns the number of nodes, not counting the root.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) lookup(key string) *node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[key]
}

// AddRequirement records that from depends on req.
//
// A new package starts [Pending] with req's constraint. A known package
// merges: the constraint becomes the intersection of every dependent's
// constraint. The node becomes [Conflicted] when the intersection is
// provably empty or when two different non-registry links meet. A
// [Resolved] node whose version falls outside the narrowed constraint goes
// back to [Pending] and its own dependencies are withdrawn, so the next
// expansion picks another release. Every dependent stays recorded so a
// conflict names all of them.
//
// The returned error is the node's conflict, if it has one after the merge.
// A requirement on the root itself is ignored.
func (g *Graph) AddRequirement(from string, req models.Requirement) error {
	g.apply.Lock()
	defer g.apply.Unlock()
	return g.add(from, req, 1)
}

// add must be called with g.apply held.
func (g *Graph) add(from string, req models.Requirement, depth int) error {
	key := req.Key()
	if key == "" {
		return fmt.Errorf("%w: empty package name", models.ErrInvalidRequirement)
	}
	if key == g.root {
		return nil
	}
	from = models.NormalizeName(from)
	if from == "" {
		from = g.root
	}

	g.mu.Lock()
	n, ok := g.nodes[key]
	if !ok {
		n = &node{key: key, depth: depth, in: make(map[string]edge)}
		g.nodes[key] = n
	}
	g.mu.Unlock()

	n.mu.Lock()
	stale := n.merge(from, req, depth)
	var err error
	if n.state == Conflicted {
		err = n.err
	}
	n.mu.Unlock()

	g.retract(n.key, stale)
	return err
}

// merge must be called with n.mu held. It returns the dependencies the node
// no longer vouches for.
func (n *node) merge(from string, req models.Requirement, depth int) []string {
	req = req.Clone()
	req.Parents = []string{from}
	req.Version, req.Hashes = "", nil

	if prev, ok := n.in[from]; ok {
		req = prev.req.Merge(req)
		depth = min(depth, prev.depth)
	}
	n.in[from] = edge{req: req, depth: depth}
	return n.recompute()
}

// recompute folds the incoming edges in parent order and settles the state
// against the result. Must be called with n.mu held.
func (n *node) recompute() []string {
	var req models.Requirement
	depth := 0
	for i, parent := range slices.Sorted(maps.Keys(n.in)) {
		e := n.in[parent]
		if i == 0 {
			req, depth = e.req.Clone(), e.depth
			continue
		}
		name := min(req.Name, e.req.Name)
		req = req.Merge(e.req)
		req.Name = name
		depth = min(depth, e.depth)
	}
	n.req, n.depth = req, depth
	n.gen++
	return n.settle()
}

// settle moves the node to the state its merged requirement allows.
func (n *node) settle() []string {
	switch {
	case n.state == Ignored && !n.req.Optional:
		n.state = Unreachable
	case n.state == Unreachable && n.req.Optional:
		n.state = Ignored
	}

	if reason := n.diagnose(); reason != "" {
		n.conflict(reason)
		return nil
	}
	switch n.state {
	case Conflicted:
		// Whatever conflicted the node no longer holds; ask the source again.
		n.state = Pending
		n.reason, n.err = "", nil
	case Resolved:
		if n.keeps(n.candidate) {
			return nil
		}
		stale := n.deps
		n.state = Pending
		n.candidate, n.deps = Candidate{}, nil
		return stale
	}
	return nil
}

// keeps reports whether c still meets the merged requirement. A registry
// release does not meet a requirement that names a link.
func (n *node) keeps(c Candidate) bool {
	if links.IsRegistry(c.Link) && !links.IsRegistry(n.req.Link) {
		return false
	}
	return allows(n.req, c.Version)
}

// diagnose returns why the merged requirement cannot be met by any
// release, or "". It only looks at the accumulated edges, so the verdict
// does not depend on the order they arrived in.
func (n *node) diagnose() string {
	var seen []links.Link
	for _, e := range n.in {
		l := e.req.Link
		if links.IsRegistry(l) || slices.ContainsFunc(seen, func(s links.Link) bool { return links.Equal(s, l) }) {
			continue
		}
		seen = append(seen, l)
	}
	switch {
	case len(seen) > 1:
		return "incompatible sources"
	case n.req.Constraint.Empty():
		return "no version satisfies " + n.req.Constraint.String()
	}
	return ""
}

func (n *node) conflict(reason string) {
	n.state = Conflicted
	n.reason = reason
	n.refreshConflict()
}

func (n *node) refreshConflict() {
	contr := make([]Contribution, 0, len(n.in))
	for _, parent := range slices.Sorted(maps.Keys(n.in)) {
		e := n.in[parent]
		contr = append(contr, Contribution{Parent: parent, Constraint: e.req.Constraint, Link: e.req.Link})
	}
	n.err = &ConstraintConflictError{Name: n.key, Reason: n.reason, Contributions: contr}
}

// retract withdraws parent's edges from children. A child left without
// dependents is removed from the graph and its own dependencies are
// withdrawn in turn. Must be called with g.apply held.
func (g *Graph) retract(parent string, children []string) {
	type withdrawal struct {
		parent   string
		children []string
	}
	work := []withdrawal{{parent, children}}
	for len(work) > 0 {
		w := work[len(work)-1]
		work = work[:len(work)-1]
		for _, key := range w.children {
			n := g.lookup(key)
			if n == nil {
				continue
			}
			n.mu.Lock()
			if _, ok := n.in[w.parent]; !ok {
				n.mu.Unlock()
				continue
			}
			delete(n.in, w.parent)
			var stale []string
			orphan := len(n.in) == 0
			if orphan {
				n.removed = true
				stale, n.deps = n.deps, nil
			} else {
				stale = n.recompute()
			}
			n.mu.Unlock()

			if orphan {
				g.mu.Lock()
				if g.nodes[key] == n {
					delete(g.nodes, key)
				}
				g.mu.Unlock()
			}
			if len(stale) > 0 {
				work = append(work, withdrawal{key, stale})
			}
		}
	}
}

// prune removes nodes no longer reachable from the root. Withdrawals remove
// orphans as they go; prune catches cycles cut loose as a whole.
func (g *Graph) prune() {
	g.apply.Lock()
	defer g.apply.Unlock()

	nodes := g.Nodes()
	children := make(map[string][]string)
	for _, n := range nodes {
		for _, p := range n.Requirement.Parents {
			children[p] = append(children[p], n.Name)
		}
	}
	seen := map[string]bool{g.root: true}
	queue := []string{g.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}

	var dead []Node
	g.mu.Lock()
	for _, n := range nodes {
		if seen[n.Name] {
			continue
		}
		dead = append(dead, n)
		if live := g.nodes[n.Name]; live != nil {
			live.mu.Lock()
			live.removed = true
			live.deps = nil
			live.mu.Unlock()
			delete(g.nodes, n.Name)
		}
	}
	g.mu.Unlock()
	for _, n := range dead {
		g.retract(n.Name, n.Dependencies)
	}
}

func (n *node) snapshot() Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	req := n.req.Clone()
	req.Parents = slices.Sorted(maps.Keys(n.in))
	out := Node{
		Name:         n.key,
		State:        n.state,
		Requirement:  req,
		Depth:        n.depth,
		Dependencies: slices.Clone(n.deps),
		Reason:       n.reason,
		Err:          n.err,
	}
	if n.state == Resolved {
		out.Version = n.candidate.Version
		out.Link = n.candidate.Link
		out.Hashes = slices.Clone(n.candidate.Hashes)
	}
	return out
}

// Node returns a snapshot of the named node.
func (g *Graph) Node(name string) (Node, bool) {
	n := g.lookup(models.NormalizeName(name))
	if n == nil {
		return Node{}, false
	}
	return n.snapshot(), true
}

// Nodes returns snapshots of every node sorted by name.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	keys := slices.Sorted(maps.Keys(g.nodes))
	nodes := make([]*node, len(keys))
	for i, k := range keys {
		nodes[i] = g.nodes[k]
	}
	g.mu.RUnlock()

	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.snapshot()
	}
	return out
}

// Conflicts returns the conflict of every [Conflicted] node, sorted by name.
func (g *Graph) Conflicts() []*ConstraintConflictError {
	var out []*ConstraintConflictError
	for _, n := range g.Nodes() {
		if n.State != Conflicted {
			continue
		}
		if ce, ok := n.Err.(*ConstraintConflictError); ok {
			out = append(out, ce)
		}
	}
	return out
}

// pending returns the sorted names of Pending nodes no deeper than maxDepth.
func (g *Graph) pending(maxDepth int) []string {
	var out []string
	for _, n := range g.Nodes() {
		if n.State == Pending && n.Depth <= maxDepth {
			out = append(out, n.Name)
		}
	}
	return out
}

// DAG exports the graph, root included, for rendering and JSON export.
// Rows are resolution depths. Node metadata carries version, constraint,
// state and link; cycles are kept as edges.
func (g *Graph) DAG() *dag.DAG {
	d := dag.New(dag.Metadata{"root": g.root})
	_ = d.AddNode(dag.Node{ID: g.root, Row: 0, Meta: dag.Metadata{"state": "root"}})

	nodes := g.Nodes()
	for _, n := range nodes {
		meta := dag.Metadata{"state": n.State.String()}
		if n.Version != "" {
			meta["version"] = n.Version
		}
		if !n.Requirement.Constraint.IsAny() {
			meta["constraint"] = n.Requirement.Constraint.String()
		}
		if !links.IsRegistry(n.Requirement.Link) {
			meta["link"] = n.Requirement.Link.String()
		}
		if n.Reason != "" {
			meta["reason"] = n.Reason
		}
		if n.Requirement.Optional {
			meta["optional"] = true
		}
		_ = d.AddNode(dag.Node{ID: n.Name, Row: n.Depth, Meta: meta})
	}
	for _, n := range nodes {
		for _, p := range n.Requirement.Parents {
			_ = d.AddEdge(dag.Edge{From: p, To: n.Name})
		}
	}
	return d
}
