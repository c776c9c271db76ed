package references

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

type seenKey struct {
	typ  *types.Type
	node *yaml.Node
}

type graphBuilder struct {
	ctx      context.Context
	resolver *Resolver
	refs     ResolvedRefMap
	seen     map[seenKey]struct{}
}

// ResolveDocumentRefs walks root and every document reachable from it, guided by rootType, and
// resolves each reference once. Targets are walked in their own document so references reachable
// only through other documents are resolved too. Failed resolutions are recorded as unresolved,
// only a cancelled context aborts the walk.
func ResolveDocumentRefs(ctx context.Context, root *Document, rootType *types.Type, resolver *Resolver) (ResolvedRefMap, error) {
	if root == nil || root.Source == nil || rootType == nil {
		return nil, errors.ErrDocumentRequired
	}
	if resolver == nil {
		var err error
		resolver, err = NewResolver()
		if err != nil {
			return nil, err
		}
	}

	b := &graphBuilder{
		ctx:      ctx,
		resolver: resolver,
		refs:     ResolvedRefMap{},
		seen:     map[seenKey]struct{}{},
	}
	if err := b.walk(root.Root, rootType, root); err != nil {
		return nil, err
	}
	return b.refs, nil
}

func (b *graphBuilder) walk(node *yaml.Node, typ *types.Type, doc *Document) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}

	node = yml.ResolveAlias(node)
	if node == nil || typ == nil {
		return nil
	}

	key := seenKey{typ: typ, node: node}
	if _, ok := b.seen[key]; ok {
		return nil
	}
	b.seen[key] = struct{}{}

	ref, isRef := GetRef(node)
	if isRef {
		if err := b.resolveRef(doc, string(ref), typ); err != nil {
			return err
		}
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			k := yml.ResolveAlias(node.Content[i]).Value
			if isRef && k == RefKey {
				continue
			}
			if err := b.walkChild(node, node.Content[i+1], k, typ, doc); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			if err := b.walkChild(node, item, strconv.Itoa(i), typ, doc); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *graphBuilder) walkChild(parent, value *yaml.Node, key string, typ *types.Type, doc *Document) error {
	value = yml.ResolveAlias(value)
	childType, direct := typ.ChildType(parent, value, key)
	if childType == nil {
		return nil
	}
	if direct {
		if value == nil || value.Kind != yaml.ScalarNode || value.Value == "" || IsBareName(value.Value) {
			return nil
		}
		return b.resolveRef(doc, value.Value, childType)
	}
	return b.walk(value, childType, doc)
}

func (b *graphBuilder) resolveRef(doc *Document, ref string, typ *types.Type) error {
	id := RefID{AbsoluteRef: doc.Source.AbsoluteRef, Ref: ref}
	if existing, ok := b.refs[id]; ok {
		// a reference still in progress is on the current resolution path
		if existing.inProgress || !existing.Resolved {
			return nil
		}
		// the same reference met under another type may reach references the first walk skipped
		return b.walk(existing.Node, typ, existing.Document)
	}

	record := &ResolvedRef{inProgress: true}
	b.refs[id] = record

	resolved, err := b.follow(doc, Reference(ref), nil)
	if err != nil {
		return err
	}
	*record = *resolved
	if !record.Resolved {
		return nil
	}
	record.IsRemote = record.Document.Source.AbsoluteRef != doc.Source.AbsoluteRef

	record.inProgress = true
	err = b.walk(record.Node, typ, record.Document)
	record.inProgress = false
	return err
}

// follow resolves ref written in doc. References met on the way (a pointer crossing a reference node,
// or a target that is itself a reference) are followed; a chain that comes back to itself is unresolved.
func (b *graphBuilder) follow(doc *Document, ref Reference, chain []string) (*ResolvedRef, error) {
	hop := RefID{AbsoluteRef: doc.Source.AbsoluteRef, Ref: string(ref)}.String()
	if slices.Contains(chain, hop) {
		return &ResolvedRef{Error: errors.NewCircularError(doc.Source.AbsoluteRef, string(ref.GetJSONPointer()))}, nil
	}
	chain = append(chain, hop)

	targetDoc := doc
	if uri := ref.GetURI(); uri != "" {
		d, err := b.resolver.ResolveDocument(b.ctx, doc.Source.AbsoluteRef, uri, false)
		if err != nil {
			if ctxErr := b.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return &ResolvedRef{Error: err}, nil
		}
		targetDoc = d
	}

	jp := ref.GetJSONPointer()
	parts, err := jp.Parts()
	if err != nil {
		return &ResolvedRef{Error: errors.NewPointerError(targetDoc.Source.AbsoluteRef, string(jp), err)}, nil
	}

	target := targetDoc.Root
	pointer := jsonpointer.Root
	for i, part := range parts {
		child := jsonpointer.Child(target, part)
		if child == nil {
			next, ok := GetRef(target)
			if !ok {
				return notFound(targetDoc, jp, parts[:i+1]), nil
			}
			via, err := b.follow(targetDoc, next, chain)
			if err != nil || !via.Resolved {
				return via, err
			}
			targetDoc = via.Document
			pointer = via.NodePointer
			child = jsonpointer.Child(via.Node, part)
			if child == nil {
				return notFound(targetDoc, jp, parts[:i+1]), nil
			}
		}
		target = child
		pointer = jsonpointer.Join(pointer, part)
	}

	if next, ok := GetRef(target); ok {
		return b.follow(targetDoc, next, chain)
	}

	return &ResolvedRef{
		Resolved:    true,
		Document:    targetDoc,
		Node:        target,
		NodePointer: pointer,
	}, nil
}

func notFound(doc *Document, jp jsonpointer.JSONPointer, parts []string) *ResolvedRef {
	missing := jsonpointer.PartsToJSONPointer(parts)
	return &ResolvedRef{
		Error: errors.NewPointerError(doc.Source.AbsoluteRef, string(jp), jsonpointer.ErrNotFound.Wrap(fmt.Errorf("%s", missing))),
	}
}
