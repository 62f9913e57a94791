package element

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/gofhir/conformance/pool"
)

// FromJSON builds an instance tree from raw JSON. Child order follows the
// document, so evidence ordering is stable for a given input.
func FromJSON(data []byte) (Node, error) {
	root, err := buildObject(data, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("element: invalid instance: %w", err)
	}
	return root, nil
}

func buildObject(data []byte, loc string, root, scope *node) (*node, error) {
	n := &node{}

	if typ, err := jsonparser.GetString(data, "resourceType"); err == nil {
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

	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		name := string(key)
		childLoc := pool.ChildPath(loc, name)

		switch dataType {
		case jsonparser.Object:
			child, cerr := buildObject(value, childLoc, root, scope)
			if cerr != nil {
				return cerr
			}
			n.fields = append(n.fields, field{name: name, nodes: []*node{child}})

		case jsonparser.Array:
			nodes, cerr := buildArray(value, childLoc, root, scope)
			if cerr != nil {
				return cerr
			}
			n.fields = append(n.fields, field{name: name, nodes: nodes, array: true})

		default:
			leaf, cerr := buildLeaf(value, dataType, childLoc, root, scope)
			if cerr != nil {
				return cerr
			}
			n.fields = append(n.fields, field{name: name, nodes: []*node{leaf}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func buildArray(data []byte, loc string, root, scope *node) ([]*node, error) {
	var nodes []*node
	var buildErr error
	index := 0

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, itemErr error) {
		if buildErr != nil {
			return
		}
		if itemErr != nil {
			buildErr = itemErr
			return
		}
		itemLoc := pool.IndexedPath(loc, index)
		index++

		switch dataType {
		case jsonparser.Object:
			child, cerr := buildObject(value, itemLoc, root, scope)
			if cerr != nil {
				buildErr = cerr
				return
			}
			nodes = append(nodes, child)
		default:
			leaf, cerr := buildLeaf(value, dataType, itemLoc, root, scope)
			if cerr != nil {
				buildErr = cerr
				return
			}
			nodes = append(nodes, leaf)
		}
	})
	if err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, buildErr
	}
	return nodes, nil
}

func buildLeaf(value []byte, dataType jsonparser.ValueType, loc string, root, scope *node) (*node, error) {
	n := &node{loc: loc, root: root, scope: scope}

	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		n.value = s

	case jsonparser.Number:
		// Keep the textual form so decimal precision survives.
		n.value = json.Number(string(value))

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, err
		}
		n.value = b

	case jsonparser.Null:
		n.value = nil

	default:
		// Nested arrays and other exotic shapes fall back to generic parsing.
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, err
		}
		n.value = v
	}
	return n, nil
}
