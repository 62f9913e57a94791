package element

import (
	"encoding/json"
	"sort"

	"github.com/gofhir/conformance/pool"
)

// FromMap builds an instance tree from a generic map, e.g. the output of
// encoding/json unmarshaling. Child order is not available in a Go map, so
// names are ordered lexically for determinism.
func FromMap(m map[string]any) Node {
	return buildAnyObject(m, "", nil, nil)
}

func buildAnyObject(m map[string]any, loc string, root, scope *node) *node {
	n := &node{}

	if typ, ok := m["resourceType"].(string); ok {
		n.typ = typ
	}

	if root == nil {
		root = n
	}
	n.root = root
	if n.typ != "" {
		scope = n
	}
	n.scope = scope

	if loc == "" {
		loc = n.typ
		if loc == "" {
			loc = "$"
		}
	}
	n.loc = loc

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		childLoc := pool.ChildPath(loc, name)
		switch v := m[name].(type) {
		case map[string]any:
			child := buildAnyObject(v, childLoc, root, scope)
			n.fields = append(n.fields, field{name: name, nodes: []*node{child}})
		case []any:
			nodes := make([]*node, 0, len(v))
			for i, item := range v {
				itemLoc := pool.IndexedPath(childLoc, i)
				if itemMap, ok := item.(map[string]any); ok {
					nodes = append(nodes, buildAnyObject(itemMap, itemLoc, root, scope))
				} else {
					nodes = append(nodes, &node{value: item, loc: itemLoc, root: root, scope: scope})
				}
			}
			n.fields = append(n.fields, field{name: name, nodes: nodes, array: true})
		default:
			n.fields = append(n.fields, field{name: name, nodes: []*node{{value: v, loc: childLoc, root: root, scope: scope}}})
		}
	}
	return n
}

// FromAny builds a node from a generic JSON-shaped value: maps become
// complex nodes, anything else a leaf.
func FromAny(v any) Node {
	if m, ok := v.(map[string]any); ok {
		return FromMap(m)
	}
	return &node{value: v, loc: "$"}
}

// ToAny converts a node back to its generic value form: the primitive value
// for leaves, a map for complex nodes. A child group that came from a JSON
// array stays a []any even when it holds a single element, so the round
// trip preserves the document's shape.
func ToAny(n Node) any {
	if n == nil {
		return nil
	}
	if cn, ok := n.(*node); ok {
		return toAnyNode(cn)
	}
	names := n.ChildNames()
	if len(names) == 0 {
		return n.Value()
	}
	m := make(map[string]any, len(names))
	for _, name := range names {
		children := n.Children(name)
		switch len(children) {
		case 0:
		case 1:
			m[name] = ToAny(children[0])
		default:
			arr := make([]any, len(children))
			for i, c := range children {
				arr[i] = ToAny(c)
			}
			m[name] = arr
		}
	}
	return m
}

func toAnyNode(n *node) any {
	if len(n.fields) == 0 {
		return n.value
	}
	m := make(map[string]any, len(n.fields))
	for _, f := range n.fields {
		switch {
		case f.array:
			arr := make([]any, len(f.nodes))
			for i, c := range f.nodes {
				arr[i] = toAnyNode(c)
			}
			m[f.name] = arr
		case len(f.nodes) > 0:
			m[f.name] = toAnyNode(f.nodes[0])
		}
	}
	return m
}

// ToJSON renders a node as JSON via its generic value form.
func ToJSON(n Node) ([]byte, error) {
	return json.Marshal(ToAny(n))
}
