package references

import (
	"testing"

	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestReference_Validate_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  Reference
	}{
		{name: "simple fragment reference", ref: "#/components/schemas/User"},
		{name: "relative URI with fragment", ref: "schemas.yaml#/User"},
		{name: "absolute URI with fragment", ref: "https://example.com/api.yaml#/components/schemas/User"},
		{name: "absolute URI without fragment", ref: "https://example.com/api.yaml"},
		{name: "relative URI without fragment", ref: "schemas.yaml"},
		{name: "JSON pointer with escapes", ref: "#/paths/~1users~1{id}/get/responses/200/content/application~1json/examples/0"},
		{name: "URI with query parameters", ref: "https://example.com/api.yaml?version=1.0#/components/schemas/User"},
		{name: "document reference with empty fragment", ref: "pet.yaml#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, tt.ref.Validate(), "Expected reference to be valid: %s", tt.ref)
		})
	}
}

func TestReference_Validate_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ref         Reference
		expectError string
	}{
		{name: "empty reference", ref: "", expectError: "empty reference"},
		{name: "invalid URI scheme", ref: "ht tp://example.com/api.yaml#/User", expectError: "invalid reference URI"},
		{name: "missing leading slash", ref: "#components/schemas/User", expectError: "invalid reference JSON pointer"},
		{name: "invalid escape sequence", ref: "#/components/schemas/User~2", expectError: "invalid reference JSON pointer"},
		{name: "only fragment separator", ref: "#", expectError: "invalid reference JSON pointer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.ref.Validate()
			require.Error(t, err, "Expected reference to be invalid: %s", tt.ref)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestReference_Parts(t *testing.T) {
	t.Parallel()

	ref := Reference("schemas.yaml#/components/schemas/Pet%20Food")
	assert.Equal(t, "schemas.yaml", ref.GetURI())
	assert.Equal(t, jsonpointer.JSONPointer("#/components/schemas/Pet Food"), ref.GetJSONPointer())
	assert.False(t, ref.IsLocal())

	local := Reference("#/definitions/Pet")
	assert.Empty(t, local.GetURI())
	assert.True(t, local.IsLocal())

	whole := Reference("pet.yaml")
	assert.Equal(t, jsonpointer.JSONPointer("#"), whole.GetJSONPointer())
	assert.Equal(t, "pet.yaml", whole.String())
}

func TestIsRef(t *testing.T) {
	t.Parallel()

	parse := func(src string) *yaml.Node {
		var node yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(src), &node))
		return yml.ResolveAlias(&node)
	}

	assert.True(t, IsRef(parse(`$ref: '#/a'`)))
	assert.True(t, IsRef(parse(`{$ref: './a.yaml', description: x}`)))
	assert.False(t, IsRef(parse(`$ref: {type: string}`)))
	assert.False(t, IsRef(parse(`type: string`)))
	assert.False(t, IsRef(parse(`- $ref: '#/a'`)))
	assert.False(t, IsRef(nil))

	node := parse(`{$ref: './a.yaml', description: x}`)
	SetRef(node, "#/components/schemas/a")
	ref, ok := GetRef(node)
	require.True(t, ok)
	assert.Equal(t, Reference("#/components/schemas/a"), ref)
	assert.Equal(t, "x", yml.GetMapElement(node, "description").Value)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	src := &Source{AbsoluteRef: "/specs/openapi.yaml"}
	root := NewLocation(src, "")
	assert.Equal(t, "#/", root.Pointer)

	child := root.Child("paths", "/pets", "get")
	assert.Equal(t, "#/paths/~1pets/get", child.Pointer)
	assert.Equal(t, "/specs/openapi.yaml#/paths/~1pets/get", child.AbsolutePointer())
	assert.True(t, child == root.Child("paths").Child("/pets", "get"))
	assert.True(t, root == root.Child())

	// locations compare by source identity, not by locator text
	other := NewLocation(&Source{AbsoluteRef: "/specs/openapi.yaml"}, child.Pointer)
	assert.False(t, child == other)
	assert.Equal(t, child.AbsolutePointer(), other.AbsolutePointer())
}

func TestParseDocument(t *testing.T) {
	t.Parallel()

	doc, err := MakeDocumentFromString("openapi: 3.0.0\ninfo: {title: t, version: '1'}\n", "/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, yaml.MappingNode, doc.Root.Kind)
	assert.Equal(t, "/openapi.yaml", doc.Source.AbsoluteRef)

	doc, err = MakeDocumentFromString(`{"swagger": "2.0"}`, "/swagger.json")
	require.NoError(t, err)
	assert.Equal(t, "2.0", yml.GetMapElement(doc.Root, "swagger").Value)

	doc, err = MakeDocumentFromString("", "/empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, "!!null", doc.Root.Tag)

	_, err = MakeDocumentFromString("a: [b", "/broken.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failure")
}
