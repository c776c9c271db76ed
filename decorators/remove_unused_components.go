package decorators

import (
	"slices"
	"strings"

	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/sequencedmap"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// RemoveUnusedComponentsID is the id the bundler registers the unused component sweep under.
const RemoveUnusedComponentsID = "remove-unused-components"

type removeUnusedComponents struct{}

var _ Decorator = (*removeUnusedComponents)(nil)

func (d *removeUnusedComponents) ID() string { return RemoveUnusedComponentsID }
func (d *removeUnusedComponents) Kind() Kind { return KindDecorator }
func (d *removeUnusedComponents) Description() string {
	return "Removes component entries that no remaining reference points at."
}

func (d *removeUnusedComponents) Versions() []types.SpecMajorVersion {
	return []types.SpecMajorVersion{types.MajorOAS2, types.MajorOAS3}
}

func (d *removeUnusedComponents) Visitor(version types.SpecVersion, _ map[string]any) (walk.Visitor, error) {
	return NewRemoveUnusedComponents(version.Major()), nil
}

type component struct {
	// usedIn holds the absolute pointers of the references pointing into the component.
	usedIn []string
	group  string
	name   string
}

type componentLayout struct {
	// container is the root key holding the groups, empty when groups live on the root.
	container string
	// depth is the number of pointer tokens addressing a single component.
	depth int
	// groups maps the type of a named map to the group it is stored under.
	groups map[string]string
	// tracked lists the types whose references count as usages.
	tracked []string
}

func layoutFor(major types.SpecMajorVersion) componentLayout {
	if major == types.MajorOAS2 {
		return componentLayout{
			depth: 2,
			groups: map[string]string{
				"NamedSchemas":    "definitions",
				"NamedParameters": "parameters",
				"NamedResponses":  "responses",
			},
			tracked: []string{"Schema", "Parameter", "Response"},
		}
	}
	return componentLayout{
		container: "components",
		depth:     3,
		groups: map[string]string{
			"NamedSchemas":       "schemas",
			"NamedParameters":    "parameters",
			"NamedResponses":     "responses",
			"NamedExamples":      "examples",
			"NamedRequestBodies": "requestBodies",
			"NamedHeaders":       "headers",
		},
		tracked: []string{"Schema", "Header", "Parameter", "Response", "Example", "RequestBody"},
	}
}

// NewRemoveUnusedComponents returns the visitor removing unused components of a bundled OAS2 or OAS3
// document. Removal repeats until no component loses its last usage, so components only used by
// removed components go too. Schemas composed with allOf are always kept. The number of removed
// components is stored under "removedCount" in the visitor data.
func NewRemoveUnusedComponents(major types.SpecMajorVersion) walk.Visitor {
	layout := layoutFor(major)
	components := sequencedmap.New[string, *component]()

	use := func(target string, from references.Location) {
		c, ok := components.Get(target)
		if !ok {
			c = &component{}
			components.Set(target, c)
		}
		c.usedIn = append(c.usedIn, from.AbsolutePointer())
	}

	register := func(loc references.Location, group, name string) {
		ptr := loc.AbsolutePointer()
		c, ok := components.Get(ptr)
		if !ok {
			c = &component{}
			components.Set(ptr, c)
		}
		c.group = group
		c.name = name
	}

	typeVisitors := map[string]walk.NodeVisitor{
		"Root": {
			Leave: func(root *yaml.Node, ctx *walk.UserContext) {
				ctx.Data()["removedCount"] = sweep(root, layout, components)
			},
		},
	}

	for typeName, group := range layout.groups {
		typeVisitors[typeName] = walk.NodeVisitor{
			Enter: func(node *yaml.Node, ctx *walk.UserContext) {
				for i := 0; i+1 < len(node.Content); i += 2 {
					name := yml.ResolveAlias(node.Content[i]).Value
					if group == "schemas" || group == "definitions" {
						if yml.HasKey(node.Content[i+1], "allOf") {
							continue
						}
					}
					register(ctx.Location.Child(name), group, name)
				}
			},
		}
	}

	return walk.Visitor{
		Ref: walk.RefVisitor{
			Leave: func(_ *yaml.Node, resolved walk.ResolveResult, ctx *walk.UserContext) {
				if ctx.Type == nil || !slices.Contains(layout.tracked, ctx.Type.Name) || !resolved.Resolved() {
					return
				}
				use(componentPointer(*resolved.Location, layout.depth), ctx.Location)
			},
		},
		Types: typeVisitors,
	}
}

// componentPointer cuts the pointer of loc down to the component it falls into.
func componentPointer(loc references.Location, depth int) string {
	parts := strings.Split(strings.TrimPrefix(loc.Pointer, "#"), "/")
	// parts[0] is the empty token before the leading slash
	if len(parts) > depth+1 {
		parts = parts[:depth+1]
	}
	return loc.AbsoluteRef() + "#" + strings.Join(parts, "/")
}

func sweep(root *yaml.Node, layout componentLayout, components *sequencedmap.Map[string, *component]) int {
	container := root
	if layout.container != "" {
		container = yml.GetMapElement(root, layout.container)
	}
	if container == nil || container.Kind != yaml.MappingNode {
		return 0
	}

	var removed []string
	for {
		start := len(removed)

		var pointers []string
		for ptr := range components.Keys() {
			pointers = append(pointers, ptr)
		}

		for _, ptr := range pointers {
			c, _ := components.Get(ptr)
			if c.group == "" || isUsed(c, removed) {
				continue
			}

			removed = append(removed, ptr)
			components.Delete(ptr)

			group := yml.GetMapElement(container, c.group)
			yml.DeleteMapNodeElement(group, c.name)
			if yml.IsEmpty(group) {
				yml.DeleteMapNodeElement(container, c.group)
			}
		}

		if len(removed) == start {
			break
		}
	}

	if layout.container != "" && yml.IsEmpty(container) {
		yml.DeleteMapNodeElement(root, layout.container)
	}
	return len(removed)
}

func isUsed(c *component, removed []string) bool {
	for _, from := range c.usedIn {
		if !slices.ContainsFunc(removed, func(r string) bool { return hasPointerPrefix(from, r) }) {
			return true
		}
	}
	return false
}

func hasPointerPrefix(ptr, prefix string) bool {
	return strings.HasPrefix(ptr, prefix) && (len(ptr) == len(prefix) || ptr[len(prefix)] == '/')
}
