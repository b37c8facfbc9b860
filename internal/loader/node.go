package loader

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/kolah/ontogen/internal/model"
	"go.yaml.in/yaml/v4"
)

// ParseDocument parses JSON or YAML into its root node.
func ParseDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := resolveAlias(&doc)
	if root != nil && root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		root = resolveAlias(root.Content[0])
	}
	if root == nil || root.Kind == 0 {
		return nil, fmt.Errorf("empty document")
	}
	return root, nil
}

// Pointer walks a JSON pointer (with or without the leading '#') from root.
func Pointer(root *yaml.Node, pointer string) (*yaml.Node, error) {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" {
		return root, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q", pointer)
	}

	cur := resolveAlias(root)
	for _, raw := range strings.Split(pointer[1:], "/") {
		token := model.UnescapePointerToken(raw)
		switch {
		case cur == nil:
			return nil, fmt.Errorf("pointer %s: nothing at %q", pointer, token)
		case cur.Kind == yaml.MappingNode:
			next := mappingValue(cur, token)
			if next == nil {
				return nil, fmt.Errorf("pointer %s: key %q not found", pointer, token)
			}
			cur = next
		case cur.Kind == yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil, fmt.Errorf("pointer %s: invalid index %q", pointer, token)
			}
			cur = resolveAlias(cur.Content[idx])
		default:
			return nil, fmt.Errorf("pointer %s: cannot descend into scalar at %q", pointer, token)
		}
	}
	return cur, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

// pairs iterates a mapping node in declaration order.
func pairs(n *yaml.Node) iter.Seq2[string, *yaml.Node] {
	return func(yield func(string, *yaml.Node) bool) {
		n = resolveAlias(n)
		if n == nil || n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if !yield(n.Content[i].Value, resolveAlias(n.Content[i+1])) {
				return
			}
		}
	}
}

func sequence(n *yaml.Node) []*yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*yaml.Node, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, resolveAlias(c))
	}
	return out
}

func isMapping(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.MappingNode
}

func scalarString(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func scalarBool(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.ScalarNode {
		return false
	}
	b, _ := strconv.ParseBool(n.Value)
	return b
}

func stringList(n *yaml.Node) []string {
	var out []string
	for _, item := range sequence(n) {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NodeValue converts a node into plain values: scalars become string, int,
// float64, bool or nil; sequences []any; mappings model.Object.
func NodeValue(n *yaml.Node) any {
	n = resolveAlias(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		obj := model.Object{}
		for k, v := range pairs(n) {
			obj = append(obj, model.Field{Key: k, Value: NodeValue(v)})
		}
		return obj
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			list = append(list, NodeValue(c))
		}
		return list
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return nil
}

func scalarValue(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		if b, err := strconv.ParseBool(n.Value); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return int(i)
		}
	case "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return f
		}
	}
	return n.Value
}
