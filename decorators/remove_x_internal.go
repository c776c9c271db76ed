package decorators

import (
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

const (
	RemoveXInternalID = "remove-x-internal"
	// DefaultInternalFlagProperty marks entries as internal unless configured otherwise.
	DefaultInternalFlagProperty = "x-internal"
)

type removeXInternal struct{}

var _ Decorator = (*removeXInternal)(nil)

func (d *removeXInternal) ID() string                         { return RemoveXInternalID }
func (d *removeXInternal) Kind() Kind                         { return KindDecorator }
func (d *removeXInternal) Versions() []types.SpecMajorVersion { return nil }
func (d *removeXInternal) Description() string {
	return "Removes map entries and list items flagged as internal."
}

type removeXInternalOptions struct {
	InternalFlagProperty string `yaml:"internalFlagProperty"`
}

func (d *removeXInternal) Visitor(_ types.SpecVersion, options map[string]any) (walk.Visitor, error) {
	var opts removeXInternalOptions
	if err := decodeOptions(options, &opts); err != nil {
		return walk.Visitor{}, err
	}
	return NewRemoveXInternal(opts.InternalFlagProperty), nil
}

// NewRemoveXInternal returns the visitor dropping every entry whose value, or the target of its
// reference, holds a true flag property. An empty flag means DefaultInternalFlagProperty.
// Discriminator mappings lose the entries pointing at removed oneOf or anyOf items.
func NewRemoveXInternal(flag string) walk.Visitor {
	if flag == "" {
		flag = DefaultInternalFlagProperty
	}

	internal := func(node *yaml.Node) bool {
		return yml.IsTruthy(node, flag)
	}

	return walk.Visitor{
		Any: walk.NodeVisitor{
			Enter: func(node *yaml.Node, ctx *walk.UserContext) {
				removed := filterEntries(node, ctx, internal)
				if len(removed) > 0 && (ctx.Key == "oneOf" || ctx.Key == "anyOf") {
					dropMappings(ctx.Parent, removed)
				}
			},
		},
	}
}

func dropMappings(schema *yaml.Node, refs []string) {
	mapping := yml.GetMapElement(yml.GetMapElement(schema, "discriminator"), "mapping")
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return
	}

	for _, ref := range refs {
		for _, name := range yml.MapKeys(mapping) {
			if value, ok := yml.GetString(mapping, name); ok && value == ref {
				yml.DeleteMapNodeElement(mapping, name)
			}
		}
	}
}
