package references

import (
	"github.com/speakeasy-api/refbundle/jsonpointer"
)

// Location addresses a node: a document source plus a "#/" prefixed JSON pointer into it.
// Locations are values, two are equal when both the source and the pointer are equal.
type Location struct {
	Source  *Source
	Pointer string
}

// NewLocation returns the location of pointer within src. An empty pointer addresses the document root.
func NewLocation(src *Source, pointer string) Location {
	if pointer == "" || pointer == "#" {
		pointer = jsonpointer.Root
	}
	return Location{Source: src, Pointer: pointer}
}

// Child derives the location of a descendant addressed by unescaped path components.
func (l Location) Child(components ...string) Location {
	if len(components) == 0 {
		return l
	}
	return Location{Source: l.Source, Pointer: jsonpointer.Join(l.Pointer, components...)}
}

// AbsoluteRef returns the locator of the document the location points into.
func (l Location) AbsoluteRef() string {
	if l.Source == nil {
		return ""
	}
	return l.Source.AbsoluteRef
}

// AbsolutePointer returns the locator followed by the pointer, which identifies the location across documents.
func (l Location) AbsolutePointer() string {
	return l.AbsoluteRef() + l.Pointer
}

func (l Location) String() string {
	return l.AbsolutePointer()
}
