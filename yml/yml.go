package yml

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

func CreateStringNode(value string) *yaml.Node {
	return &yaml.Node{
		Value: value,
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
	}
}

func CreateIntNode(value int64) *yaml.Node {
	return &yaml.Node{
		Value: strconv.FormatInt(value, 10),
		Kind:  yaml.ScalarNode,
		Tag:   "!!int",
	}
}

func CreateBoolNode(value bool) *yaml.Node {
	return &yaml.Node{
		Value: strconv.FormatBool(value),
		Kind:  yaml.ScalarNode,
		Tag:   "!!bool",
	}
}

func CreateMapNode(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{
		Content: content,
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
	}
}

func CreateSequenceNode(elements ...*yaml.Node) *yaml.Node {
	return &yaml.Node{
		Content: elements,
		Kind:    yaml.SequenceNode,
		Tag:     "!!seq",
	}
}

// CreateRefNode returns a mapping holding a single $ref entry.
func CreateRefNode(ref string) *yaml.Node {
	return CreateMapNode(CreateStringNode("$ref"), CreateStringNode(ref))
}

func ResolveAlias(node *yaml.Node) *yaml.Node {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case yaml.AliasNode:
		return ResolveAlias(node.Alias)
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil
		}
		return ResolveAlias(node.Content[0])
	default:
		return node
	}
}

func IsMapping(node *yaml.Node) bool {
	node = ResolveAlias(node)
	return node != nil && node.Kind == yaml.MappingNode
}

func IsSequence(node *yaml.Node) bool {
	node = ResolveAlias(node)
	return node != nil && node.Kind == yaml.SequenceNode
}

func IsScalar(node *yaml.Node) bool {
	node = ResolveAlias(node)
	return node != nil && node.Kind == yaml.ScalarNode
}

// GetMapElementNodes returns the key and value nodes for key in mapNode.
func GetMapElementNodes(mapNode *yaml.Node, key string) (*yaml.Node, *yaml.Node, bool) {
	resolvedMapNode := ResolveAlias(mapNode)
	if resolvedMapNode == nil || resolvedMapNode.Kind != yaml.MappingNode {
		return nil, nil, false
	}

	for i := 0; i+1 < len(resolvedMapNode.Content); i += 2 {
		keyNode := resolvedMapNode.Content[i]
		if keyNode.Value == key {
			return keyNode, resolvedMapNode.Content[i+1], true
		}
		if resolvedKeyNode := ResolveAlias(keyNode); resolvedKeyNode != nil && resolvedKeyNode.Value == key {
			return keyNode, resolvedMapNode.Content[i+1], true
		}
	}

	return nil, nil, false
}

// GetMapElement returns the alias-resolved value stored under key, or nil.
func GetMapElement(mapNode *yaml.Node, key string) *yaml.Node {
	_, value, ok := GetMapElementNodes(mapNode, key)
	if !ok {
		return nil
	}
	return ResolveAlias(value)
}

// GetMapElementIndex returns the index of the value node for key within the mapping's Content.
func GetMapElementIndex(mapNode *yaml.Node, key string) int {
	resolvedMapNode := ResolveAlias(mapNode)
	if resolvedMapNode == nil || resolvedMapNode.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(resolvedMapNode.Content); i += 2 {
		if keyNode := ResolveAlias(resolvedMapNode.Content[i]); keyNode != nil && keyNode.Value == key {
			return i + 1
		}
	}
	return -1
}

// GetString returns the scalar value stored under key and whether it was a scalar.
func GetString(mapNode *yaml.Node, key string) (string, bool) {
	value := GetMapElement(mapNode, key)
	if value == nil || value.Kind != yaml.ScalarNode {
		return "", false
	}
	return value.Value, true
}

// HasKey reports whether mapNode contains key.
func HasKey(mapNode *yaml.Node, key string) bool {
	_, _, ok := GetMapElementNodes(mapNode, key)
	return ok
}

// IsTruthy reports whether key holds a YAML true value.
func IsTruthy(mapNode *yaml.Node, key string) bool {
	value := GetMapElement(mapNode, key)
	if value == nil || value.Kind != yaml.ScalarNode {
		return false
	}
	b, err := strconv.ParseBool(value.Value)
	return err == nil && b
}

// MapKeys returns the keys of a mapping in document order.
func MapKeys(mapNode *yaml.Node) []string {
	resolvedMapNode := ResolveAlias(mapNode)
	if resolvedMapNode == nil || resolvedMapNode.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(resolvedMapNode.Content)/2)
	for i := 0; i+1 < len(resolvedMapNode.Content); i += 2 {
		keys = append(keys, ResolveAlias(resolvedMapNode.Content[i]).Value)
	}
	return keys
}

// SetMapElement sets key to valueNode, replacing an existing value in place or appending a new pair.
func SetMapElement(mapNode *yaml.Node, key string, valueNode *yaml.Node) {
	resolvedMapNode := ResolveAlias(mapNode)
	if resolvedMapNode == nil {
		return
	}
	if idx := GetMapElementIndex(resolvedMapNode, key); idx >= 0 {
		resolvedMapNode.Content[idx] = valueNode
		return
	}
	resolvedMapNode.Content = append(resolvedMapNode.Content, CreateStringNode(key), valueNode)
}

// EnsureMapElement returns the mapping stored under key, creating an empty one when absent.
func EnsureMapElement(mapNode *yaml.Node, key string) *yaml.Node {
	if value := GetMapElement(mapNode, key); value != nil && value.Kind == yaml.MappingNode {
		return value
	}
	value := CreateMapNode()
	SetMapElement(mapNode, key, value)
	return value
}

// DeleteMapNodeElement removes key from mapNode and reports whether it was present.
func DeleteMapNodeElement(mapNode *yaml.Node, key string) bool {
	resolvedMapNode := ResolveAlias(mapNode)
	idx := GetMapElementIndex(resolvedMapNode, key)
	if idx < 0 {
		return false
	}
	resolvedMapNode.Content = append(resolvedMapNode.Content[:idx-1], resolvedMapNode.Content[idx+1:]...)
	return true
}

// IsEmpty reports whether node is a mapping or sequence with no entries.
func IsEmpty(node *yaml.Node) bool {
	node = ResolveAlias(node)
	if node == nil {
		return false
	}
	return (node.Kind == yaml.MappingNode || node.Kind == yaml.SequenceNode) && len(node.Content) == 0
}

// Clone returns a deep copy of node with aliases expanded.
func Clone(node *yaml.Node) *yaml.Node {
	return clone(node, map[*yaml.Node]*yaml.Node{})
}

func clone(node *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.AliasNode {
		return clone(node.Alias, seen)
	}
	if c, ok := seen[node]; ok {
		return c
	}

	c := &yaml.Node{}
	*c = *node
	seen[node] = c
	if len(node.Content) > 0 {
		c.Content = make([]*yaml.Node, len(node.Content))
		for i, child := range node.Content {
			c.Content[i] = clone(child, seen)
		}
	}
	return c
}

func NodeTagToString(tag string) string {
	switch tag {
	case "!!str":
		return "string"
	case "!!int":
		return "int"
	case "!!float":
		return "float"
	case "!!bool":
		return "bool"
	case "!!map":
		return "object"
	case "!!seq":
		return "sequence"
	case "!!null":
		return "null"
	default:
		return tag
	}
}

// NodeKindToString returns a human-readable name for a yaml.Kind, for error messages.
func NodeKindToString(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "object"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
