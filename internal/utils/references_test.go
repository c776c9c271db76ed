package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReference_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		reference    string
		expectedType ReferenceType
	}{
		{name: "http URL", reference: "http://example.com/api/schema.json", expectedType: ReferenceTypeURL},
		{name: "https URL", reference: "https://api.example.com/v1/openapi.yaml", expectedType: ReferenceTypeURL},
		{name: "file URL", reference: "file:///path/to/schema.json", expectedType: ReferenceTypeURL},
		{name: "fragment", reference: "#/components/schemas/User", expectedType: ReferenceTypeFragment},
		{name: "relative file", reference: "./schemas/user.yaml", expectedType: ReferenceTypeFilePath},
		{name: "parent relative file", reference: "../user.yaml#/User", expectedType: ReferenceTypeFilePath},
		{name: "absolute file", reference: "/specs/openapi.yaml", expectedType: ReferenceTypeFilePath},
		{name: "bare file name", reference: "pet.json", expectedType: ReferenceTypeFilePath},
		{name: "windows drive letter", reference: `C:\specs\openapi.yaml`, expectedType: ReferenceTypeFilePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := ClassifyReference(tt.reference)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, result.Type)
			assert.Equal(t, tt.reference, result.Original)
		})
	}
}

func TestClassifyReference_Error(t *testing.T) {
	t.Parallel()

	_, err := ClassifyReference("")
	require.Error(t, err)
	assert.False(t, IsURL(""))
}

func TestIsAbsoluteURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAbsoluteURL("https://example.com/a.yaml"))
	assert.True(t, IsAbsoluteURL("HTTP://example.com/a.yaml"))
	assert.False(t, IsAbsoluteURL("file:///a.yaml"))
	assert.False(t, IsAbsoluteURL("./a.yaml"))
	assert.False(t, IsAbsoluteURL("#/definitions/a"))
}

func TestSplitReference(t *testing.T) {
	t.Parallel()

	uri, fragment := SplitReference("schemas.yaml#/Pet")
	assert.Equal(t, "schemas.yaml", uri)
	assert.Equal(t, "/Pet", fragment)

	uri, fragment = SplitReference("#/components/schemas/Pet")
	assert.Empty(t, uri)
	assert.Equal(t, "/components/schemas/Pet", fragment)

	uri, fragment = SplitReference("schemas.yaml")
	assert.Equal(t, "schemas.yaml", uri)
	assert.Empty(t, fragment)
}

func TestJoinReference_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		relative string
		expected string
	}{
		{name: "empty base", base: "", relative: "a.yaml", expected: "a.yaml"},
		{name: "empty relative", base: "/specs/openapi.yaml", relative: "", expected: "/specs/openapi.yaml"},
		{name: "sibling file", base: "/specs/openapi.yaml", relative: "pet.yaml", expected: "/specs/pet.yaml"},
		{name: "dot relative file", base: "/specs/openapi.yaml", relative: "./schemas/pet.yaml", expected: "/specs/schemas/pet.yaml"},
		{name: "parent file", base: "/specs/v1/openapi.yaml", relative: "../common.yaml", expected: "/specs/common.yaml"},
		{name: "absolute file", base: "/specs/openapi.yaml", relative: "/other/pet.yaml", expected: "/other/pet.yaml"},
		{name: "fragment onto file", base: "/specs/openapi.yaml#/a", relative: "#/b", expected: "/specs/openapi.yaml#/b"},
		{name: "url relative", base: "https://example.com/specs/openapi.yaml", relative: "pet.yaml", expected: "https://example.com/specs/pet.yaml"},
		{name: "url parent", base: "https://example.com/specs/v1/openapi.yaml", relative: "../pet.yaml", expected: "https://example.com/specs/pet.yaml"},
		{name: "url absolute path", base: "https://example.com/specs/openapi.yaml", relative: "/pet.yaml", expected: "https://example.com/pet.yaml"},
		{name: "url onto url", base: "https://example.com/openapi.yaml", relative: "https://other.com/pet.yaml", expected: "https://other.com/pet.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := JoinReference(tt.base, tt.relative)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
