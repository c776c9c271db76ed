// Package json provides utilities for working with JSON.
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/speakeasy-api/refbundle/sequencedmap"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// YAMLToJSON will convert the provided YAML node to JSON in a stable way not reordering keys.
func YAMLToJSON(node *yaml.Node, indentation int, buffer io.Writer) error {
	v, err := handleYAMLNode(node, 0)
	if err != nil {
		return err
	}

	e := json.NewEncoder(buffer)
	e.SetEscapeHTML(false)
	e.SetIndent("", strings.Repeat(" ", indentation))

	return e.Encode(v)
}

// maxDepth bounds conversion of trees that contain themselves through aliases.
const maxDepth = 10000

func handleYAMLNode(node *yaml.Node, depth int) (any, error) {
	if node == nil {
		return nil, nil
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("document nesting exceeds %d levels, possible circular structure", maxDepth)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return handleYAMLNode(node.Content[0], depth+1)
	case yaml.SequenceNode:
		v := make([]any, len(node.Content))
		for i, n := range node.Content {
			vv, err := handleYAMLNode(n, depth+1)
			if err != nil {
				return nil, err
			}
			v[i] = vv
		}
		return v, nil
	case yaml.MappingNode:
		return handleMappingNode(node, depth)
	case yaml.ScalarNode:
		if node.ShortTag() == "!!timestamp" || node.ShortTag() == "!!binary" {
			return node.Value, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case yaml.AliasNode:
		return handleYAMLNode(node.Alias, depth+1)
	default:
		return nil, fmt.Errorf("unknown node kind: %s", yml.NodeKindToString(node.Kind))
	}
}

func handleMappingNode(node *yaml.Node, depth int) (any, error) {
	v := sequencedmap.New[string, any]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := yml.ResolveAlias(node.Content[i])

		vv, err := handleYAMLNode(node.Content[i+1], depth+1)
		if err != nil {
			return nil, err
		}

		v.Set(keyNode.Value, vv)
	}

	return v, nil
}
