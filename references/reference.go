package references

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/speakeasy-api/refbundle/internal/utils"
	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// RefKey is the mapping key that turns a node into a reference node.
const RefKey = "$ref"

// Reference is a `$ref` value: an optional document URI followed by an optional "#" JSON pointer fragment.
type Reference string

var _ fmt.Stringer = (*Reference)(nil)

// GetURI returns the document part of the reference. It is empty for same-document references.
func (r Reference) GetURI() string {
	uri, _ := utils.SplitReference(string(r))
	return uri
}

func (r Reference) HasJSONPointer() bool {
	return strings.Contains(string(r), "#")
}

// GetJSONPointer returns the fragment as a "#/" prefixed pointer with percent-encoding removed.
// A reference without a fragment addresses the whole document.
func (r Reference) GetJSONPointer() jsonpointer.JSONPointer {
	_, pointer := utils.SplitReference(string(r))

	// URL decode the JSON pointer to handle percent-encoded characters
	// like %25 (which represents %)
	if decoded, err := url.PathUnescape(pointer); err == nil {
		pointer = decoded
	}

	return jsonpointer.JSONPointer("#" + pointer)
}

// IsBareName reports whether a directly resolved value, such as a discriminator mapping value, is a
// plain component name rather than a reference.
func IsBareName(value string) bool {
	return value != "" && !strings.ContainsAny(value, "#/.")
}

// IsLocal reports whether the reference points into the document it is written in.
func (r Reference) IsLocal() bool {
	return r.GetURI() == ""
}

func (r Reference) Validate() error {
	if r == "" {
		return errors.New("empty reference")
	}

	uri := r.GetURI()

	if uri != "" {
		if _, err := url.Parse(uri); err != nil {
			return fmt.Errorf("invalid reference URI: %w", err)
		}
	}

	if r.HasJSONPointer() {
		_, fragment := utils.SplitReference(string(r))
		if fragment == "" && uri == "" {
			return errors.New("invalid reference JSON pointer: empty")
		}

		if err := r.GetJSONPointer().Validate(); err != nil {
			return fmt.Errorf("invalid reference JSON pointer: %w", err)
		}
	}

	return nil
}

func (r Reference) String() string {
	return string(r)
}

// IsRef reports whether node is a reference node: a mapping holding a string `$ref`.
func IsRef(node *yaml.Node) bool {
	_, ok := GetRef(node)
	return ok
}

// GetRef returns the `$ref` value of a reference node.
func GetRef(node *yaml.Node) (Reference, bool) {
	node = yml.ResolveAlias(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return "", false
	}
	value := yml.GetMapElement(node, RefKey)
	if value == nil || value.Kind != yaml.ScalarNode {
		return "", false
	}
	return Reference(value.Value), true
}

// SetRef rewrites the `$ref` value of a reference node in place.
func SetRef(node *yaml.Node, ref string) {
	value := yml.GetMapElement(node, RefKey)
	if value == nil {
		yml.SetMapElement(node, RefKey, yml.CreateStringNode(ref))
		return
	}
	value.Kind = yaml.ScalarNode
	value.Tag = "!!str"
	value.Value = ref
}
