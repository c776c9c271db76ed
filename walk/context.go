package walk

import (
	"fmt"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// Context collects the outcome of one Walk call.
type Context struct {
	Problems []Problem
	// VisitorsData holds one bag per rule id that visitors can use to keep state or expose results.
	VisitorsData map[string]map[string]any
	SpecVersion  types.SpecVersion
	// RefTypes records the type each walked reference was expected to point at.
	RefTypes map[references.RefID]*types.Type
}

// NewContext returns an empty Context for a walk over a document of the given version.
func NewContext(version types.SpecVersion) *Context {
	return &Context{
		VisitorsData: map[string]map[string]any{},
		SpecVersion:  version,
		RefTypes:     map[references.RefID]*types.Type{},
	}
}

// ResolveResult is the target of a reference as seen from a visitor.
// Node and Location are nil when the reference could not be resolved, in which case Error explains why.
type ResolveResult struct {
	Node     *yaml.Node
	Location *references.Location
	Document *references.Document
	IsRemote bool
	Error    error
}

// Resolved reports whether the reference has a target.
func (r ResolveResult) Resolved() bool {
	return r.Node != nil && r.Location != nil
}

type slot struct {
	doc     *references.Document
	parent  *yaml.Node
	index   int
	removed bool
}

// UserContext is handed to every hook and describes the node being visited.
type UserContext struct {
	// Type is the type the node is walked as.
	Type *types.Type
	// Location is the location of the node. For reference hooks it is the location of the `$ref` node.
	Location references.Location
	// Key is the property name or item index the node is stored under in Parent.
	Key    string
	Parent *yaml.Node

	w     *walker
	entry *Entry
	slot  *slot
}

// Report records a problem. An empty location defaults to the current node, an empty severity to the
// severity the rule is configured with and an empty rule id to the id of the current rule.
func (c *UserContext) Report(p Problem) {
	if p.Severity == "" {
		p.Severity = c.entry.Severity
	}
	if p.Severity == SeverityOff {
		return
	}
	if p.Location.Source == nil {
		p.Location = c.Location
	}
	if p.RuleID == "" {
		p.RuleID = c.entry.RuleID
	}
	c.w.wctx.Problems = append(c.w.wctx.Problems, p)
}

// Resolve returns the target of node when it is a reference, resolved relative to the current document.
// Any other node resolves to itself at the current location.
func (c *UserContext) Resolve(node *yaml.Node) ResolveResult {
	return c.ResolveFrom(node, c.Location)
}

// ResolveFrom is Resolve relative to the document of from.
func (c *UserContext) ResolveFrom(node *yaml.Node, from references.Location) ResolveResult {
	ref, ok := references.GetRef(node)
	if !ok {
		loc := from
		return ResolveResult{Node: node, Location: &loc, Document: c.w.documentOf(from)}
	}
	return c.w.resolve(from.AbsoluteRef(), string(ref))
}

// ResolveString resolves a bare reference string, such as a discriminator mapping value, relative to the current document.
func (c *UserContext) ResolveString(ref string) ResolveResult {
	return c.w.resolve(c.Location.AbsoluteRef(), ref)
}

// Replace swaps the current node for node in its parent. A nil node removes the entry once the parent's
// children are all walked. Replace reports false when the node has no addressable slot, which is the
// case for targets walked through a reference.
func (c *UserContext) Replace(node *yaml.Node) bool {
	s := c.slot
	if s == nil {
		return false
	}

	if s.parent == nil {
		if node == nil || s.doc == nil {
			return false
		}
		s.doc.Root = node
		return true
	}

	if node == nil {
		s.removed = true
		return true
	}
	s.parent.Content[s.index] = node
	return true
}

// Removed reports whether the current node was removed with Replace(nil).
func (c *UserContext) Removed() bool {
	return c.slot != nil && c.slot.removed
}

// Data returns the data bag of the current rule, shared by every hook of that rule during the walk.
func (c *UserContext) Data() map[string]any {
	bag, ok := c.w.wctx.VisitorsData[c.entry.RuleID]
	if !ok {
		bag = map[string]any{}
		c.w.wctx.VisitorsData[c.entry.RuleID] = bag
	}
	return bag
}

// SpecVersion returns the version of the walked document.
func (c *UserContext) SpecVersion() types.SpecVersion {
	return c.w.wctx.SpecVersion
}

// RootLocation returns the location of the root of the walked document.
func (c *UserContext) RootLocation() references.Location {
	return references.NewLocation(c.w.doc.Source, "")
}

// RootDocument returns the walked document.
func (c *UserContext) RootDocument() *references.Document {
	return c.w.doc
}

// RegisterRef adds a resolved record for ref written in the document at absoluteRef, so later
// hooks of this walk can resolve references created while walking.
func (c *UserContext) RegisterRef(absoluteRef, ref string, doc *references.Document, node *yaml.Node, pointer string) {
	c.w.refs.Register(absoluteRef, ref, doc, node, pointer)
}

// OnDescentPath reports whether node is the current node or one of its ancestors, including ancestors
// reached through references.
func (c *UserContext) OnDescentPath(node *yaml.Node) bool {
	node = yml.ResolveAlias(node)
	for _, n := range c.w.path {
		if n == node {
			return true
		}
	}
	return false
}

func (w *walker) resolve(absoluteRef, ref string) ResolveResult {
	record, ok := w.refs.Get(absoluteRef, ref)
	if !ok {
		return ResolveResult{
			Error: errors.NewPointerError(absoluteRef, ref, fmt.Errorf("reference was not resolved")),
		}
	}
	if !record.Resolved {
		return ResolveResult{Error: record.Error}
	}

	loc, _ := record.Location()
	return ResolveResult{
		Node:     record.Node,
		Location: &loc,
		Document: record.Document,
		IsRemote: record.IsRemote,
	}
}

func (w *walker) documentOf(loc references.Location) *references.Document {
	return w.docs[loc.Source]
}
