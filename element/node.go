package element

// Node is the read-only contract the validation engine consumes. Instances
// are trees of nodes; the engine never mutates them.
type Node interface {
	// Type returns the declared type name of this node, or "" when the
	// source carried no type information.
	Type() string

	// Value returns the primitive value of this node, or nil for complex
	// nodes.
	Value() any

	// ChildNames returns the distinct child names in document order.
	ChildNames() []string

	// Children returns the ordered children with the given name.
	Children(name string) []Node

	// Location returns a stable diagnostic path for this node,
	// e.g. "Patient.name[0].given".
	Location() string

	// Resolve performs same-document reference resolution: contained
	// ("#id") and bundled (fullUrl or "Type/id" entry match) lookup.
	// It returns nil when the reference does not resolve locally.
	Resolve(ref string) Node
}

// node is the concrete instance tree built by FromJSON and FromMap.
type node struct {
	typ    string
	value  any
	fields []field
	loc    string

	// root is the document root, used for bundled entry lookup.
	root *node
	// scope is the nearest enclosing resource, used for contained lookup.
	scope *node
}

// field is one named, ordered group of children. array records whether the
// source carried the group as a JSON array, so round-tripping preserves
// single-element arrays.
type field struct {
	name  string
	nodes []*node
	array bool
}

func (n *node) Type() string { return n.typ }

func (n *node) Value() any { return n.value }

func (n *node) Location() string { return n.loc }

func (n *node) ChildNames() []string {
	names := make([]string, len(n.fields))
	for i, f := range n.fields {
		names[i] = f.name
	}
	return names
}

func (n *node) Children(name string) []Node {
	for _, f := range n.fields {
		if f.name == name {
			out := make([]Node, len(f.nodes))
			for i, c := range f.nodes {
				out[i] = c
			}
			return out
		}
	}
	return nil
}

// child returns the first child with the given name, or nil.
func (n *node) child(name string) *node {
	for _, f := range n.fields {
		if f.name == name && len(f.nodes) > 0 {
			return f.nodes[0]
		}
	}
	return nil
}

// stringChild returns the primitive string value of the first child with the
// given name, or "".
func (n *node) stringChild(name string) string {
	c := n.child(name)
	if c == nil {
		return ""
	}
	if s, ok := c.value.(string); ok {
		return s
	}
	return ""
}

// Resolve implements same-document resolution. Contained references ("#id")
// are searched in the nearest enclosing resource; all other references are
// matched against bundle entries of the document root, first by fullUrl and
// then by "Type/id" identity.
func (n *node) Resolve(ref string) Node {
	if ref == "" {
		return nil
	}

	if ref[0] == '#' {
		if found := n.resolveContained(ref[1:]); found != nil {
			return found
		}
		return nil
	}

	if found := n.resolveBundled(ref); found != nil {
		return found
	}
	return nil
}

func (n *node) resolveContained(id string) *node {
	scope := n.scope
	if scope == nil {
		return nil
	}
	for _, contained := range scope.childNodes("contained") {
		if contained.stringChild("id") == id {
			return contained
		}
	}
	return nil
}

func (n *node) resolveBundled(ref string) *node {
	root := n.root
	if root == nil {
		return nil
	}
	typ, id := splitTypeID(ref)
	for _, entry := range root.childNodes("entry") {
		if full := entry.stringChild("fullUrl"); full != "" && full == ref {
			if res := entry.child("resource"); res != nil {
				return res
			}
		}
		res := entry.child("resource")
		if res == nil || typ == "" {
			continue
		}
		if res.typ == typ && res.stringChild("id") == id {
			return res
		}
	}
	return nil
}

// childNodes is like Children but without the interface conversion.
func (n *node) childNodes(name string) []*node {
	for _, f := range n.fields {
		if f.name == name {
			return f.nodes
		}
	}
	return nil
}

// splitTypeID splits a relative "Type/id" reference. Absolute references
// yield the trailing two path segments; anything shorter yields "".
func splitTypeID(ref string) (typ, id string) {
	// Strip query and fragment
	for i := 0; i < len(ref); i++ {
		if ref[i] == '?' || ref[i] == '#' {
			ref = ref[:i]
			break
		}
	}
	last := -1
	prev := -1
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			if last == -1 {
				last = i
			} else {
				prev = i
				break
			}
		}
	}
	if last == -1 || last == len(ref)-1 {
		return "", ""
	}
	return ref[prev+1 : last], ref[last+1:]
}
