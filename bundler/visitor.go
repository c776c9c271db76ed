package bundler

import (
	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/internal/utils"
	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

const (
	// BundlerRuleID is the rule id problems raised while bundling are reported under.
	BundlerRuleID = "bundler"
	// UnresolvedRefRuleID is the rule id of references that could not be resolved.
	UnresolvedRefRuleID = "no-unresolved-refs"
)

type bundleVisitor struct {
	major            types.SpecMajorVersion
	root             *references.Document
	cfg              *config.Config
	dereference      bool
	skipRegistryRefs bool
	keepURLRefs      bool

	// components is the mapping component groups are stored in: the components object, or the root for OAS2.
	components   *yaml.Node
	rootLocation references.Location
}

func newBundleVisitor(major types.SpecMajorVersion, root *references.Document, cfg *config.Config, opts Options) *bundleVisitor {
	return &bundleVisitor{
		major:            major,
		root:             root,
		cfg:              cfg,
		dereference:      opts.Dereference,
		skipRegistryRefs: opts.SkipRegistryRefs,
		keepURLRefs:      opts.KeepURLRefs,
	}
}

func (b *bundleVisitor) visitor() walk.Visitor {
	v := walk.Visitor{
		Ref: walk.RefVisitor{
			Enter: b.enterRef,
			Leave: b.leaveRef,
		},
		Types: map[string]walk.NodeVisitor{
			"Root": {Enter: b.enterRoot},
		},
	}
	if b.major == types.MajorOAS3 {
		v.Types["DiscriminatorMapping"] = walk.NodeVisitor{Leave: b.leaveDiscriminatorMapping}
	}
	return v
}

func (b *bundleVisitor) enterRoot(root *yaml.Node, ctx *walk.UserContext) {
	b.rootLocation = ctx.Location
	if b.major == types.MajorOAS2 {
		b.components = root
		return
	}
	b.components = yml.EnsureMapElement(root, "components")
}

// kept reports whether ref is configured to stay as written.
func (b *bundleVisitor) kept(ref string) bool {
	if b.skipRegistryRefs && b.cfg.IsRegistryRef(ref) {
		return true
	}
	return b.keepURLRefs && utils.IsAbsoluteURL(ref)
}

func (b *bundleVisitor) enterRef(node *yaml.Node, resolved walk.ResolveResult, _ *walk.UserContext) walk.RefAction {
	ref, _ := references.GetRef(node)
	if !resolved.Resolved() || b.kept(string(ref)) {
		return walk.SkipTarget
	}
	return walk.DescendIntoTarget
}

func (b *bundleVisitor) leaveRef(node *yaml.Node, resolved walk.ResolveResult, ctx *walk.UserContext) {
	if !resolved.Resolved() {
		reportUnresolvedRef(resolved, ctx, ctx.Location)
		return
	}

	ref, _ := references.GetRef(node)
	if b.kept(string(ref)) {
		return
	}

	rootSource := b.root.Source
	if resolved.Location.Source == rootSource && ctx.Location.Source == rootSource && ctx.Type != types.Scalar && !b.dereference {
		return
	}

	// a target enclosing the reference cannot be inlined into it
	cyclic := ctx.OnDescentPath(resolved.Node)

	group := types.ComponentGroup(b.major, ctx.Type.Name)
	switch {
	case group == "":
		if !cyclic {
			replaceRef(node, resolved, ctx)
		}
	case b.dereference && !cyclic:
		b.saveComponent(group, resolved, ctx)
		replaceRef(node, resolved, ctx)
	default:
		pointer := b.saveComponent(group, resolved, ctx)
		references.SetRef(node, pointer)
		b.registerBundled(pointer, resolved, ctx)
	}
}

func (b *bundleVisitor) leaveDiscriminatorMapping(mapping *yaml.Node, ctx *walk.UserContext) {
	group := types.ComponentGroup(b.major, "Schema")

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		value := yml.ResolveAlias(mapping.Content[i+1])
		if value == nil || value.Kind != yaml.ScalarNode || references.IsBareName(value.Value) || b.kept(value.Value) {
			continue
		}

		// unresolved values were reported when the value was walked as a reference
		resolved := ctx.ResolveString(value.Value)
		if !resolved.Resolved() {
			continue
		}

		pointer := b.saveComponent(group, resolved, ctx)
		if !b.dereference {
			value.Value = pointer
		}
	}
}

// saveComponent stores the target in group under a free or equal name and returns its local pointer.
func (b *bundleVisitor) saveComponent(group string, target walk.ResolveResult, ctx *walk.UserContext) string {
	groupNode := yml.EnsureMapElement(b.components, group)
	name := b.componentName(groupNode, target, ctx)
	yml.SetMapElement(groupNode, name, target.Node)

	if b.major == types.MajorOAS2 {
		return jsonpointer.Join(jsonpointer.Root, group, name)
	}
	return jsonpointer.Join("#/components", group, name)
}

// registerBundled records the rewritten reference so later hooks resolve it to the stored component.
func (b *bundleVisitor) registerBundled(pointer string, target walk.ResolveResult, ctx *walk.UserContext) {
	ctx.RegisterRef(ctx.Location.AbsoluteRef(), pointer, b.root, target.Node, pointer)
	if rootRef := b.root.Source.AbsoluteRef; rootRef != ctx.Location.AbsoluteRef() {
		ctx.RegisterRef(rootRef, pointer, b.root, target.Node, pointer)
	}
}

// replaceRef inlines the target of a reference. Mappings are merged into the reference node, with the
// sibling keys of `$ref` taking precedence, any other target replaces the reference.
func replaceRef(node *yaml.Node, target walk.ResolveResult, ctx *walk.UserContext) {
	targetNode := yml.ResolveAlias(target.Node)
	if targetNode.Kind != yaml.MappingNode {
		ctx.Replace(yml.Clone(targetNode))
		return
	}

	merged := make([]*yaml.Node, 0, len(node.Content)+len(targetNode.Content))
	for i := 0; i+1 < len(node.Content); i += 2 {
		if yml.ResolveAlias(node.Content[i]).Value == references.RefKey {
			continue
		}
		merged = append(merged, node.Content[i], node.Content[i+1])
	}
	siblings := len(merged)
	for i := 0; i+1 < len(targetNode.Content); i += 2 {
		key := yml.ResolveAlias(targetNode.Content[i]).Value
		if hasKey(merged[:siblings], key) {
			continue
		}
		merged = append(merged, targetNode.Content[i], targetNode.Content[i+1])
	}

	node.Content = merged
	node.Style = targetNode.Style
}

func hasKey(content []*yaml.Node, key string) bool {
	for i := 0; i+1 < len(content); i += 2 {
		if yml.ResolveAlias(content[i]).Value == key {
			return true
		}
	}
	return false
}

func reportUnresolvedRef(resolved walk.ResolveResult, ctx *walk.UserContext, at references.Location) {
	var locErr *errors.LocatorError
	if errors.As(resolved.Error, &locErr) && locErr.Kind == errors.ErrParseFailure && locErr.Err != nil {
		ctx.Report(walk.Problem{
			Message:  "Failed to parse: " + locErr.Err.Error(),
			RuleID:   UnresolvedRefRuleID,
			Location: references.NewLocation(&references.Source{AbsoluteRef: locErr.Locator}, ""),
		})
	}

	message := "Can't resolve $ref"
	if resolved.Error != nil {
		message += ": " + resolved.Error.Error()
	}
	ctx.Report(walk.Problem{
		Message:  message,
		RuleID:   UnresolvedRefRuleID,
		Location: at,
	})
}
