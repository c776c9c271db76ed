package bundler

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/refbundle/hashing"
	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// refBaseName returns the last path segment of a locator without its extension.
func refBaseName(locator string) string {
	base := locator
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// componentName picks the name target is stored under in group.
//
// Candidates are tried in order and the first one that is free, or already holds the same component,
// wins: the trailing pointer tokens of the target joined with "-" (one token, then two, ...), the
// document base name followed by "_" and the full joined pointer, and finally that name suffixed with
// -2, -3 and so on. Picking a suffixed name for a new component is reported as a warning.
func (b *bundleVisitor) componentName(group *yaml.Node, target walk.ResolveResult, ctx *walk.UserContext) string {
	fits := func(name string) bool {
		existing := yml.GetMapElement(group, name)
		return existing == nil || b.isEqualOrEqualRef(existing, target, ctx)
	}

	var tokens []string
	if parts, err := jsonpointer.JSONPointer(target.Location.Pointer).Parts(); err == nil {
		for _, part := range parts {
			if part != "" {
				tokens = append(tokens, part)
			}
		}
	}

	name := ""
	for i := len(tokens) - 1; i >= 0; i-- {
		if name == "" {
			name = tokens[i]
		} else {
			name = tokens[i] + "-" + name
		}
		if fits(name) {
			return name
		}
	}

	if name == "" {
		name = refBaseName(target.Location.AbsoluteRef())
	} else {
		name = refBaseName(target.Location.AbsoluteRef()) + "_" + name
	}
	if fits(name) {
		return name
	}

	prevName := name
	for serial := 2; !fits(name); serial++ {
		name = fmt.Sprintf("%s-%d", prevName, serial)
	}

	if yml.GetMapElement(group, name) == nil {
		ctx.Report(walk.Problem{
			Message:  fmt.Sprintf("Two schemas are referenced with the same name but different content. Renamed %s to %s.", prevName, name),
			Severity: walk.SeverityWarn,
		})
	}

	return name
}

// isEqualOrEqualRef reports whether the component already stored is target: either a reference that
// resolves, from the root document, to the location of target or a node holding the same data.
func (b *bundleVisitor) isEqualOrEqualRef(existing *yaml.Node, target walk.ResolveResult, ctx *walk.UserContext) bool {
	existing = yml.ResolveAlias(existing)
	targetNode := yml.ResolveAlias(target.Node)
	if existing == targetNode {
		return true
	}

	if references.IsRef(existing) {
		resolved := ctx.ResolveFrom(existing, b.rootLocation)
		if resolved.Resolved() && resolved.Location.AbsolutePointer() == target.Location.AbsolutePointer() {
			return true
		}
	}

	return hashing.Hash(existing) == hashing.Hash(targetNode) && yml.DeepEqual(existing, targetNode)
}
