package resolver

// State is the resolution state of a graph node.
type State int

const (
	// Pending nodes are known by name and accumulate constraints.
	Pending State = iota
	// Resolving nodes have a metadata fetch in flight.
	Resolving
	// Resolved nodes have a chosen version and their dependencies added.
	Resolved
	// Conflicted nodes have no satisfying version or incompatible links.
	Conflicted
	// Unreachable nodes could not be fetched.
	Unreachable
	// Ignored nodes are unreachable but only optional dependents need them.
	Ignored
)

var stateNames = [...]string{"pending", "resolving", "resolved", "conflicted", "unreachable", "ignored"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s >= Resolved
}

// Flattenable reports whether a node in state s can pass the flatten gate.
func (s State) Flattenable() bool {
	return s == Resolved || s == Ignored
}
