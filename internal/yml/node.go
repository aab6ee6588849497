// Package yml offers helpers for walking yaml.v3 node trees.
package yml

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Node is a yaml.Node with traversal helpers.
type Node yaml.Node

// Root unwraps a document node.
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// Items iterates sequence elements.
func (n *Node) Items(callback func(index int, node *Node) error) error {
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Pairs iterates mapping entries in declaration order.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// String returns a scalar value.
func (n *Node) String() (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected scalar", n.Line)
	}
	return n.Value, nil
}

// Strings accepts a scalar or a sequence of scalars.
func (n *Node) Strings() ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		ret := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected scalar item", item.Line)
			}
			ret = append(ret, item.Value)
		}
		return ret, nil
	}
	return nil, fmt.Errorf("line %d: expected scalar or sequence", n.Line)
}

// Int returns an integer scalar.
func (n *Node) Int() (int, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: expected integer", n.Line)
	}
	ret, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid integer %q", n.Line, n.Value)
	}
	return ret, nil
}

// Bool returns a boolean scalar.
func (n *Node) Bool() (bool, error) {
	if n.Kind != yaml.ScalarNode {
		return false, fmt.Errorf("line %d: expected boolean", n.Line)
	}
	ret, err := strconv.ParseBool(n.Value)
	if err != nil {
		return false, fmt.Errorf("line %d: invalid boolean %q", n.Line, n.Value)
	}
	return ret, nil
}

// Interface converts the node into plain Go values.
func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			v, _ := strconv.ParseBool(n.Value)
			return v
		case "!!null":
			return nil
		case "!!int":
			v, _ := strconv.Atoi(n.Value)
			return v
		case "!!float":
			v, _ := strconv.ParseFloat(n.Value, 64)
			return v
		}
		return n.Value
	case yaml.MappingNode:
		ret := make(map[string]interface{}, len(n.Content)/2)
		_ = n.Pairs(func(key string, node *Node) error {
			ret[key] = node.Interface()
			return nil
		})
		return ret
	case yaml.SequenceNode:
		ret := make([]interface{}, 0, len(n.Content))
		for _, item := range n.Content {
			ret = append(ret, (*Node)(item).Interface())
		}
		return ret
	case yaml.DocumentNode:
		return n.Root().Interface()
	}
	return nil
}
