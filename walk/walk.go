// Package walk traverses a document along its type graph and calls visitors on every node.
//
// The walker never resolves references itself: it consults the ResolvedRefMap built by
// references.ResolveDocumentRefs and only descends into a reference target when a visitor asks for it.
package walk

import (
	"slices"
	"strconv"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

type visitKey struct {
	typ  *types.Type
	node *yaml.Node
}

type walker struct {
	doc     *references.Document
	set     VisitorSet
	refs    references.ResolvedRefMap
	wctx    *Context
	docs    map[*references.Source]*references.Document
	visited map[visitKey]struct{}
	path    []*yaml.Node
}

// Walk visits doc depth first, typing each node from rootType.
//
// Every (type, node) pair is walked at most once. For every non-reference node all Any.Enter hooks
// run, then the Enter hooks registered for the node's type, then the children (declared properties
// first, remaining keys in document order), then the type Leave hooks and finally the Any.Leave hooks.
// A node replaced or removed by an Enter hook is not walked further.
//
// For a `$ref` node the Ref.Enter hooks run first. The target is walked at its own location when at least
// one hook returned DescendIntoTarget, the reference resolved, the slot is not a plain scalar and the
// target was not already walked as the same type. Sibling keys of `$ref` are walked next and the Ref.Leave
// hooks run last. Values typed to resolve directly, such as discriminator mapping values, go through the
// reference hooks as reference nodes without a slot.
func Walk(doc *references.Document, rootType *types.Type, set VisitorSet, refs references.ResolvedRefMap, wctx *Context) error {
	if doc == nil || doc.Source == nil || doc.Root == nil || rootType == nil {
		return errors.ErrDocumentRequired
	}
	if refs == nil {
		refs = references.ResolvedRefMap{}
	}
	if wctx == nil {
		wctx = NewContext("")
	}
	if wctx.VisitorsData == nil {
		wctx.VisitorsData = map[string]map[string]any{}
	}
	if wctx.RefTypes == nil {
		wctx.RefTypes = map[references.RefID]*types.Type{}
	}

	w := &walker{
		doc:     doc,
		set:     set.Active(),
		refs:    refs,
		wctx:    wctx,
		docs:    map[*references.Source]*references.Document{doc.Source: doc},
		visited: map[visitKey]struct{}{},
	}
	w.walkNode(doc.Root, rootType, references.NewLocation(doc.Source, ""), &slot{doc: doc}, nil, "")

	return nil
}

func (w *walker) contexts(typ *types.Type, loc references.Location, s *slot, parent *yaml.Node, key string) []*UserContext {
	ctxs := make([]*UserContext, len(w.set))
	for i := range w.set {
		ctxs[i] = &UserContext{
			Type:     typ,
			Location: loc,
			Key:      key,
			Parent:   parent,
			w:        w,
			entry:    &w.set[i],
			slot:     s,
		}
	}
	return ctxs
}

func (w *walker) walkNode(node *yaml.Node, typ *types.Type, loc references.Location, s *slot, parent *yaml.Node, name string) {
	node = yml.ResolveAlias(node)
	if node == nil || typ == nil {
		return
	}

	seen := visitKey{typ: typ, node: node}
	if _, ok := w.visited[seen]; ok {
		return
	}
	w.visited[seen] = struct{}{}
	w.path = append(w.path, node)
	defer func() {
		w.path = w.path[:len(w.path)-1]
	}()

	if ref, ok := references.GetRef(node); ok {
		w.walkRef(node, string(ref), typ, loc, s, parent, name)
		return
	}

	ctxs := w.contexts(typ, loc, s, parent, name)

	for i, e := range w.set {
		if e.Visitor.Any.Enter != nil {
			e.Visitor.Any.Enter(node, ctxs[i])
		}
	}
	for i, e := range w.set {
		if enter := e.Visitor.typeVisitor(typ).Enter; enter != nil {
			enter(node, ctxs[i])
		}
	}
	if s.gone(node) {
		return
	}

	w.walkChildren(node, typ, loc, false)

	for i, e := range w.set {
		if leave := e.Visitor.typeVisitor(typ).Leave; leave != nil {
			leave(node, ctxs[i])
		}
	}
	for i, e := range w.set {
		if e.Visitor.Any.Leave != nil {
			e.Visitor.Any.Leave(node, ctxs[i])
		}
	}
}

func (w *walker) walkRef(node *yaml.Node, ref string, typ *types.Type, loc references.Location, s *slot, parent *yaml.Node, key string) {
	w.wctx.RefTypes[references.RefID{AbsoluteRef: loc.AbsoluteRef(), Ref: ref}] = typ

	resolved := w.resolve(loc.AbsoluteRef(), ref)
	ctxs := w.contexts(typ, loc, s, parent, key)

	descend := false
	for i, e := range w.set {
		if e.Visitor.Ref.Enter != nil && e.Visitor.Ref.Enter(node, resolved, ctxs[i]) == DescendIntoTarget {
			descend = true
		}
	}

	if descend && resolved.Resolved() && typ != types.Scalar {
		target := yml.ResolveAlias(resolved.Node)
		if _, ok := w.visited[visitKey{typ: typ, node: target}]; !ok {
			if resolved.Document != nil {
				w.docs[resolved.Document.Source] = resolved.Document
			}
			w.walkNode(target, typ, *resolved.Location, nil, nil, "")
		}
	}

	if !s.gone(node) {
		w.walkChildren(node, typ, loc, true)
	}

	for i, e := range w.set {
		if e.Visitor.Ref.Leave != nil {
			e.Visitor.Ref.Leave(node, resolved, ctxs[i])
		}
	}
}

// walkChildren walks the typed children of node. Removals requested while walking are applied
// once every child was visited so indexes stay valid during the walk.
func (w *walker) walkChildren(node *yaml.Node, typ *types.Type, loc references.Location, skipRef bool) {
	var slots []*slot

	switch node.Kind {
	case yaml.MappingNode:
		for _, idx := range mappingOrder(node, typ) {
			if idx >= len(node.Content) {
				continue
			}
			k := yml.ResolveAlias(node.Content[idx-1]).Value
			if skipRef && k == references.RefKey {
				continue
			}
			value := node.Content[idx]
			child, direct := typ.ChildType(node, yml.ResolveAlias(value), k)
			if child == nil {
				continue
			}
			if direct {
				w.walkDirect(value, child, loc.Child(k), node, k)
				continue
			}
			cs := &slot{parent: node, index: idx}
			slots = append(slots, cs)
			w.walkNode(value, child, loc.Child(k), cs, node, k)
		}
		removeSlots(node, slots, 2)
	case yaml.SequenceNode:
		for i := 0; i < len(node.Content); i++ {
			value := node.Content[i]
			k := strconv.Itoa(i)
			child, direct := typ.ChildType(node, yml.ResolveAlias(value), k)
			if child == nil {
				continue
			}
			if direct {
				w.walkDirect(value, child, loc.Child(k), node, k)
				continue
			}
			cs := &slot{parent: node, index: i}
			slots = append(slots, cs)
			w.walkNode(value, child, loc.Child(k), cs, node, k)
		}
		removeSlots(node, slots, 1)
	}
}

// walkDirect walks a bare pointer string as if it was a reference node holding it. The reference node
// only exists for the hooks: it has no slot and changes made to it are dropped.
func (w *walker) walkDirect(value *yaml.Node, typ *types.Type, loc references.Location, parent *yaml.Node, key string) {
	value = yml.ResolveAlias(value)
	if value == nil || value.Kind != yaml.ScalarNode || value.Value == "" || references.IsBareName(value.Value) {
		return
	}
	w.walkNode(yml.CreateRefNode(value.Value), typ, loc, nil, parent, key)
}

// mappingOrder returns the value indexes of node, declared properties of typ first.
func mappingOrder(node *yaml.Node, typ *types.Type) []int {
	order := make([]int, 0, len(node.Content)/2)
	used := map[int]struct{}{}

	for _, name := range typ.PropertyNames() {
		idx := yml.GetMapElementIndex(node, name)
		if idx < 0 {
			continue
		}
		if _, ok := used[idx]; ok {
			continue
		}
		used[idx] = struct{}{}
		order = append(order, idx)
	}
	for idx := 1; idx < len(node.Content); idx += 2 {
		if _, ok := used[idx]; !ok {
			order = append(order, idx)
		}
	}
	return order
}

func removeSlots(node *yaml.Node, slots []*slot, width int) {
	var removed []int
	for _, s := range slots {
		if s.removed {
			removed = append(removed, s.index)
		}
	}
	if len(removed) == 0 {
		return
	}

	slices.Sort(removed)
	for i := len(removed) - 1; i >= 0; i-- {
		end := removed[i] + 1
		start := end - width
		if start < 0 || end > len(node.Content) {
			continue
		}
		node.Content = append(node.Content[:start], node.Content[end:]...)
	}
}

// gone reports whether the node held by s was removed or replaced.
func (s *slot) gone(node *yaml.Node) bool {
	if s == nil {
		return false
	}
	if s.removed {
		return true
	}
	if s.parent == nil {
		return s.doc != nil && s.doc.Root != node
	}
	return s.index < len(s.parent.Content) && yml.ResolveAlias(s.parent.Content[s.index]) != node
}
