package decorators

import (
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// criteria decides whether an entry is filtered out. It receives the entry itself, or the target of
// the entry when the entry is a reference.
type criteria func(node *yaml.Node) bool

// filterEntries removes the entries of node matching match, directly or through a reference, and
// returns the references that were removed. When node ends up empty it is removed from its parent.
func filterEntries(node *yaml.Node, ctx *walk.UserContext, match criteria) []string {
	var removedRefs []string

	matches := func(entry *yaml.Node) bool {
		entry = yml.ResolveAlias(entry)
		if ref, ok := references.GetRef(entry); ok {
			resolved := ctx.Resolve(entry)
			if resolved.Resolved() && match(yml.ResolveAlias(resolved.Node)) {
				removedRefs = append(removedRefs, string(ref))
				return true
			}
		}
		return match(entry)
	}

	deleted := false
	switch node.Kind {
	case yaml.SequenceNode:
		kept := node.Content[:0]
		for _, item := range node.Content {
			if matches(item) {
				deleted = true
				continue
			}
			kept = append(kept, item)
		}
		node.Content = kept
	case yaml.MappingNode:
		kept := node.Content[:0]
		for i := 0; i+1 < len(node.Content); i += 2 {
			if matches(node.Content[i+1]) {
				deleted = true
				continue
			}
			kept = append(kept, node.Content[i], node.Content[i+1])
		}
		node.Content = kept
	}

	if deleted && len(node.Content) == 0 {
		ctx.Replace(nil)
	}
	return removedRefs
}
