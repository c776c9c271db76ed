package decorators

import (
	"fmt"
	"slices"

	"github.com/speakeasy-api/jsonpath/pkg/jsonpath"
	"github.com/speakeasy-api/jsonpath/pkg/jsonpath/config"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

const FilterOutID = "filter-out"

type filterOut struct{}

var _ Decorator = (*filterOut)(nil)

func (d *filterOut) ID() string                         { return FilterOutID }
func (d *filterOut) Kind() Kind                         { return KindDecorator }
func (d *filterOut) Versions() []types.SpecMajorVersion { return nil }
func (d *filterOut) Description() string {
	return "Removes the nodes selected by JSONPath targets or by a property value."
}

// FilterOutOptions configure the filter-out decorator. Targets and Property can be combined.
type FilterOutOptions struct {
	// Targets are JSONPath expressions, every matched node is removed from its parent.
	Targets []string `yaml:"targets"`
	// Legacy evaluates Targets with the pre RFC 9535 JSONPath dialect.
	Legacy bool `yaml:"legacy"`
	// Property and Value remove the entries whose Property equals Value or, for list values,
	// shares an item with it.
	Property string `yaml:"property"`
	Value    any    `yaml:"value"`
}

func (d *filterOut) Visitor(_ types.SpecVersion, options map[string]any) (walk.Visitor, error) {
	var opts FilterOutOptions
	if err := decodeOptions(options, &opts); err != nil {
		return walk.Visitor{}, err
	}
	return NewFilterOut(opts)
}

// Queryable selects nodes below a root node.
type Queryable interface {
	Query(root *yaml.Node) []*yaml.Node
}

type yamlPathQueryable struct {
	path *yamlpath.Path
}

func (y yamlPathQueryable) Query(root *yaml.Node) []*yaml.Node {
	// errors aren't actually possible from yamlpath.
	result, _ := y.path.Find(root)
	return result
}

type rfcJSONPathQueryable struct {
	path *jsonpath.JSONPath
}

func (r rfcJSONPathQueryable) Query(root *yaml.Node) []*yaml.Node {
	return r.path.Query(root)
}

// NewPath compiles target with the RFC 9535 implementation, or the legacy one when legacy is set.
func NewPath(target string, legacy bool) (Queryable, error) {
	if legacy {
		path, err := yamlpath.NewPath(target)
		if err != nil {
			return nil, ErrInvalidOptions.Wrap(fmt.Errorf("invalid jsonpath %s: %w", target, err))
		}
		return yamlPathQueryable{path: path}, nil
	}

	path, err := jsonpath.NewPath(target, config.WithPropertyNameExtension())
	if err != nil {
		return nil, ErrInvalidOptions.Wrap(fmt.Errorf("invalid rfc9535 jsonpath %s: %w", target, err))
	}
	return rfcJSONPathQueryable{path: path}, nil
}

// NewFilterOut returns the visitor removing what opts select. The number of nodes removed through
// targets is stored under "removedCount" in the visitor data.
func NewFilterOut(opts FilterOutOptions) (walk.Visitor, error) {
	if len(opts.Targets) == 0 && opts.Property == "" {
		return walk.Visitor{}, ErrInvalidOptions.Wrap(fmt.Errorf("either targets or property is required"))
	}

	paths := make([]Queryable, 0, len(opts.Targets))
	for _, target := range opts.Targets {
		p, err := NewPath(target, opts.Legacy)
		if err != nil {
			return walk.Visitor{}, err
		}
		paths = append(paths, p)
	}

	v := walk.Visitor{}
	if len(paths) > 0 {
		v.Types = map[string]walk.NodeVisitor{
			"Root": {
				Enter: func(root *yaml.Node, ctx *walk.UserContext) {
					removed := 0
					for _, p := range paths {
						idx := newParentIndex(root)
						for _, node := range p.Query(root) {
							if removeNode(idx, node) {
								removed++
							}
						}
					}
					ctx.Data()["removedCount"] = removed
				},
			},
		}
	}

	if opts.Property != "" {
		wanted := scalarValues(opts.Value)
		v.Any.Enter = func(node *yaml.Node, ctx *walk.UserContext) {
			filterEntries(node, ctx, func(entry *yaml.Node) bool {
				return matchesProperty(entry, opts.Property, wanted)
			})
		}
	}

	return v, nil
}

func scalarValues(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func matchesProperty(entry *yaml.Node, property string, wanted []string) bool {
	value := yml.GetMapElement(entry, property)
	if value == nil {
		return false
	}
	switch value.Kind {
	case yaml.ScalarNode:
		return slices.Contains(wanted, value.Value)
	case yaml.SequenceNode:
		for _, item := range value.Content {
			item = yml.ResolveAlias(item)
			if item != nil && item.Kind == yaml.ScalarNode && slices.Contains(wanted, item.Value) {
				return true
			}
		}
	}
	return false
}

type parentIndex map[*yaml.Node]*yaml.Node

func newParentIndex(root *yaml.Node) parentIndex {
	idx := parentIndex{}
	var index func(node *yaml.Node)
	index = func(node *yaml.Node) {
		for _, child := range node.Content {
			if _, seen := idx[child]; seen {
				continue
			}
			idx[child] = node
			index(child)
		}
	}
	index(root)
	return idx
}

func (idx parentIndex) getParent(node *yaml.Node) *yaml.Node {
	return idx[node]
}

func removeNode(idx parentIndex, node *yaml.Node) bool {
	parent := idx.getParent(node)
	if parent == nil {
		return false
	}

	for i, child := range parent.Content {
		if child != node {
			continue
		}
		switch parent.Kind {
		case yaml.MappingNode:
			if i%2 == 1 {
				// if we select a value, we should delete the key too
				parent.Content = append(parent.Content[:i-1], parent.Content[i+1:]...)
			} else {
				// if we select a key, we should delete the value
				parent.Content = append(parent.Content[:i], parent.Content[i+2:]...)
			}
			return true
		case yaml.SequenceNode:
			parent.Content = append(parent.Content[:i], parent.Content[i+1:]...)
			return true
		}
	}
	return false
}
