package references

import (
	"gopkg.in/yaml.v3"
)

// RefID identifies a reference: the locator of the document it is written in plus the literal `$ref` string.
type RefID struct {
	AbsoluteRef string
	Ref         string
}

func (id RefID) String() string {
	return id.AbsoluteRef + "::" + id.Ref
}

// ResolvedRef is the resolution record of one RefID.
// Unresolved records carry Error and no Document or Node.
type ResolvedRef struct {
	Resolved bool
	// IsRemote reports that the target lives in a different document than the reference.
	IsRemote bool
	Document *Document
	Node     *yaml.Node
	// NodePointer is the "#/" prefixed pointer of Node within Document.
	NodePointer string
	Error       error

	inProgress bool
}

// Location returns the location of the target node.
func (r *ResolvedRef) Location() (Location, bool) {
	if r == nil || !r.Resolved || r.Document == nil {
		return Location{}, false
	}
	return NewLocation(r.Document.Source, r.NodePointer), true
}

// ResolvedRefMap maps every reference reachable from a root document to its resolution record.
type ResolvedRefMap map[RefID]*ResolvedRef

// Get returns the record of ref written in the document located at absoluteRef.
func (m ResolvedRefMap) Get(absoluteRef, ref string) (*ResolvedRef, bool) {
	resolved, ok := m[RefID{AbsoluteRef: absoluteRef, Ref: ref}]
	return resolved, ok
}

// Register adds a resolved record for ref written in the document located at absoluteRef.
func (m ResolvedRefMap) Register(absoluteRef, ref string, doc *Document, node *yaml.Node, pointer string) {
	m[RefID{AbsoluteRef: absoluteRef, Ref: ref}] = &ResolvedRef{
		Resolved:    true,
		IsRemote:    doc != nil && doc.Source.AbsoluteRef != absoluteRef,
		Document:    doc,
		Node:        node,
		NodePointer: pointer,
	}
}
