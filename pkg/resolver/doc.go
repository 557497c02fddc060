// Package resolver builds the transitive dependency graph of a project.
//
// # Graph
//
// A [Graph] is an arena of nodes keyed by normalized package name. Each node
// accumulates the constraints its dependents contribute through
// [Graph.AddRequirement]; the merged constraint is their intersection, so
// the order in which dependents arrive never changes the outcome. A node
// whose contributions cannot be met together becomes [Conflicted] and keeps
// every contribution, so the conflict names all dependents.
//
// # Resolution
//
// [Resolver.Build] expands [Pending] nodes breadth-first through a [Source]
// with bounded parallelism. Each round ends at a join point where
// conflicts are checked; any conflict abandons the run and all of them are
// reported together. A resolved name is expanded again only when a later
// dependent narrows it past the chosen release; the dependencies of that
// release are then withdrawn. Revisiting a name on a cycle is a merge, so
// dependency cycles terminate.
//
//	r := resolver.New(project, src, resolver.Options{Workers: 8})
//	if err := r.Build(ctx); err != nil {
//	    return err
//	}
//	reqs, err := r.Flatten(true)
//
// [Resolver.Flatten] is the single gate to output: it refuses to return a
// partial list while any node is pending, conflicted or unreachable.
package resolver
