package assertion

// State is the per-call traversal state. It records the reference strings
// visited on the current traversal path so the reference validator can
// detect cycles.
//
// State has literal value semantics: Visit returns a new state for the
// recursive call and never mutates the receiver, so sibling branches are
// isolated and a target reachable via two different paths is not mistaken
// for a cycle.
type State struct {
	visited *visitedRef
}

// visitedRef is one link in the immutable chain of visited references.
type visitedRef struct {
	ref    string
	parent *visitedRef
}

// NewState returns the empty traversal state for a fresh top-level call.
func NewState() State {
	return State{}
}

// Visited reports whether ref was already visited on the current path.
func (s State) Visited(ref string) bool {
	for v := s.visited; v != nil; v = v.parent {
		if v.ref == ref {
			return true
		}
	}
	return false
}

// Visit returns a new state extended with ref. The receiver is unchanged.
func (s State) Visit(ref string) State {
	return State{visited: &visitedRef{ref: ref, parent: s.visited}}
}

// Depth returns the number of visited references on the current path.
func (s State) Depth() int {
	n := 0
	for v := s.visited; v != nil; v = v.parent {
		n++
	}
	return n
}
