package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
)

// ErrUnknownNode is returned when an operation names a package that is not
// in the graph.
var ErrUnknownNode = errors.New("unknown node")

// Contribution is what one dependent asked of a package.
type Contribution struct {
	Parent     string
	Constraint constraint.Constraint
	Link       links.Link
}

func (c Contribution) String() string {
	var b strings.Builder
	b.WriteString(c.Parent)
	b.WriteString(" requires ")
	switch {
	case !links.IsRegistry(c.Link):
		b.WriteString(c.Link.String())
	case c.Constraint.IsAny():
		b.WriteString("any version")
	default:
		b.WriteString(c.Constraint.String())
	}
	return b.String()
}

// ConstraintConflictError reports a package whose requirements cannot be
// satisfied together. Contributions lists every dependent, sorted by parent.
type ConstraintConflictError struct {
	Name          string
	Reason        string
	Contributions []Contribution
}

func (e *ConstraintConflictError) Error() string {
	parts := make([]string, len(e.Contributions))
	for i, c := range e.Contributions {
		parts[i] = c.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("conflict on %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("conflict on %s: %s (%s)", e.Name, e.Reason, strings.Join(parts, "; "))
}

// Parents returns the dependents that contributed to the conflict.
func (e *ConstraintConflictError) Parents() []string {
	out := make([]string, len(e.Contributions))
	for i, c := range e.Contributions {
		out[i] = c.Parent
	}
	return out
}

// ConflictsError aggregates every conflict found in one resolution run,
// sorted by package name.
type ConflictsError struct {
	Conflicts []*ConstraintConflictError
}

func (e *ConflictsError) Error() string {
	if len(e.Conflicts) == 1 {
		return "resolution abandoned: " + e.Conflicts[0].Error()
	}
	lines := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		lines[i] = "  " + c.Error()
	}
	return fmt.Sprintf("resolution abandoned: %d conflicts\n%s", len(e.Conflicts), strings.Join(lines, "\n"))
}

func (e *ConflictsError) Unwrap() []error {
	out := make([]error, len(e.Conflicts))
	for i, c := range e.Conflicts {
		out[i] = c
	}
	return out
}

// FetchFailure reports a [Source] error for one package. The resolver does
// not retry; the node becomes [Unreachable].
type FetchFailure struct {
	Name    string
	Version string // empty when candidate selection failed
	Err     error
}

func (e *FetchFailure) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("fetch %s %s: %v", e.Name, e.Version, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Name, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// NodeStatus names a node and why it blocks flattening.
type NodeStatus struct {
	Name   string
	State  State
	Reason string
}

func (s NodeStatus) String() string {
	if s.Reason == "" {
		return fmt.Sprintf("%s (%s)", s.Name, s.State)
	}
	return fmt.Sprintf("%s (%s: %s)", s.Name, s.State, s.Reason)
}

// UnresolvedGraphError is returned by Flatten while nodes are not terminal
// or ended in a failure state. Nodes is sorted by name.
type UnresolvedGraphError struct {
	Nodes []NodeStatus
}

func (e *UnresolvedGraphError) Error() string {
	parts := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		parts[i] = n.String()
	}
	return fmt.Sprintf("graph has %d unresolved nodes: %s", len(e.Nodes), strings.Join(parts, ", "))
}

// Names returns the names of the offending nodes.
func (e *UnresolvedGraphError) Names() []string {
	out := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		out[i] = n.Name
	}
	return out
}
