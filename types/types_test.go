package types

import (
	"testing"

	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	return yml.ResolveAlias(&node)
}

func TestBuild_AllVersions_Success(t *testing.T) {
	t.Parallel()

	for _, v := range Versions {
		t.Run(string(v), func(t *testing.T) {
			t.Parallel()
			types, err := Build(v, nil)
			require.NoError(t, err)
			require.NotNil(t, types.Root)
			assert.Equal(t, "Root", types.Root.Name)

			schema, ok := types.Get("Schema")
			require.True(t, ok)
			assert.True(t, schema.Recursive)
		})
	}
}

func TestBuild_OAS3_HeaderEncodingCycle(t *testing.T) {
	t.Parallel()

	for _, v := range []SpecVersion{OAS3_0, OAS3_1} {
		t.Run(string(v), func(t *testing.T) {
			t.Parallel()

			types, err := Build(v, nil)
			require.NoError(t, err)

			header, ok := types.Get("Header")
			require.True(t, ok)
			assert.True(t, header.Recursive)

			// Header.content -> MediaType.encoding -> Encoding.headers leads back to Header
			typ := header
			for _, key := range []string{"content", "application/json", "encoding", "file", "headers", "X-Rate-Limit"} {
				typ, _ = typ.ChildType(nil, nil, key)
				require.NotNil(t, typ, key)
			}
			assert.Same(t, header, typ)
		})
	}
}

func TestGetTypes_ReturnsFreshTable(t *testing.T) {
	t.Parallel()

	first, err := GetTypes(OAS3_0)
	require.NoError(t, err)
	first["Schema"].SetProperty("example", NotResolvable())

	second, err := GetTypes(OAS3_0)
	require.NoError(t, err)
	prop, ok := second["Schema"].Property("example")
	require.True(t, ok)
	assert.Equal(t, Prop{}, prop)
}

func TestNormalize_UnknownType_Error(t *testing.T) {
	t.Parallel()

	_, err := Normalize(map[string]*NodeType{
		"Root": {Properties: []Property{{Name: "info", Type: Named("Missing")}}},
	}, "Root")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "Root.info references Missing")
}

func TestNormalize_UnmarkedCycle_Error(t *testing.T) {
	t.Parallel()

	raw := map[string]*NodeType{
		"Root": {Properties: []Property{{Name: "a", Type: Named("A")}}},
		"A":    {Properties: []Property{{Name: "b", Type: Named("B")}}},
		"B":    {Properties: []Property{{Name: "a", Type: Named("A")}}},
	}
	_, err := Normalize(raw, "Root")
	require.ErrorIs(t, err, ErrUnmarkedTypeCycle)

	raw["B"].Recursive = true
	_, err = Normalize(raw, "Root")
	require.NoError(t, err)
}

func TestNormalize_MissingRoot_Error(t *testing.T) {
	t.Parallel()

	_, err := Normalize(map[string]*NodeType{"A": {}}, "Root")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestType_ChildType_Success(t *testing.T) {
	t.Parallel()

	types, err := Build(OAS3_0, nil)
	require.NoError(t, err)

	paths, _ := types.Get("Paths")
	child, direct := paths.ChildType(nil, nil, "/pets")
	require.NotNil(t, child)
	assert.Equal(t, "PathItem", child.Name)
	assert.False(t, direct)

	child, _ = paths.ChildType(nil, nil, "x-extra")
	assert.Equal(t, SpecExtension, child)

	child, _ = paths.ChildType(nil, nil, "not-a-path")
	assert.Nil(t, child)

	schema, _ := types.Get("Schema")
	child, _ = schema.ChildType(nil, parse(t, "true"), "additionalProperties")
	assert.Equal(t, Scalar, child)
	child, _ = schema.ChildType(nil, parse(t, "type: string"), "additionalProperties")
	assert.Equal(t, "Schema", child.Name)
	child, _ = schema.ChildType(nil, nil, "unknownKeyword")
	assert.Nil(t, child)

	list, _ := types.Get("ParameterList")
	child, _ = list.ChildType(nil, nil, "0")
	assert.Equal(t, "Parameter", child.Name)

	mapping, _ := types.Get("DiscriminatorMapping")
	child, direct = mapping.ChildType(nil, parse(t, "dog.yaml"), "dog")
	assert.Equal(t, "Schema", child.Name)
	assert.True(t, direct)
}

func TestType_ChildType_AsyncPayload(t *testing.T) {
	t.Parallel()

	types, err := Build(Async2, nil)
	require.NoError(t, err)
	message, _ := types.Get("Message")

	child, _ := message.ChildType(parse(t, "payload: {type: string}"), nil, "payload")
	assert.Equal(t, "Schema", child.Name)

	child, _ = message.ChildType(parse(t, "schemaFormat: application/vnd.apache.avro;version=1.9.0"), nil, "payload")
	assert.Equal(t, Scalar, child)
}

func TestNotResolvableExamples(t *testing.T) {
	t.Parallel()

	types, err := Build(OAS3_1, nil, NotResolvableExamples)
	require.NoError(t, err)

	mediaType, _ := types.Get("MediaType")
	child, _ := mediaType.ChildType(nil, nil, "example")
	assert.Nil(t, child)

	child, _ = mediaType.ChildType(nil, nil, "schema")
	assert.Equal(t, "Schema", child.Name)
}

func TestBuild_Extension_AddsType(t *testing.T) {
	t.Parallel()

	ext := func(raw map[string]*NodeType, _ SpecVersion) map[string]*NodeType {
		raw["XLogo"] = &NodeType{Properties: scalars("url", "altText")}
		raw["Info"].SetProperty("x-logo", Named("XLogo"))
		return raw
	}

	types, err := Build(OAS3_0, nil, ext)
	require.NoError(t, err)
	info, _ := types.Get("Info")
	child, _ := info.ChildType(nil, nil, "x-logo")
	assert.Equal(t, "XLogo", child.Name)
}

func TestDetectSpec_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src      string
		expected SpecVersion
	}{
		{src: `openapi: 3.0.3`, expected: OAS3_0},
		{src: `openapi: "3.1.0"`, expected: OAS3_1},
		{src: `swagger: "2.0"`, expected: OAS2},
		{src: `asyncapi: 2.6.0`, expected: Async2},
		{src: `{"openapi": "3.0.0"}`, expected: OAS3_0},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			v, err := DetectSpec(parse(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestDetectSpec_Error(t *testing.T) {
	t.Parallel()

	for _, src := range []string{`openapi: 3.1`, `openapi: 4.0.0`, `swagger: "1.2"`, `asyncapi: 3.0.0`, `info: {}`, `- a`} {
		_, err := DetectSpec(parse(t, src))
		require.ErrorIs(t, err, ErrUnsupportedSpec, src)
	}
}

func TestComponentGroup(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "schemas", ComponentGroup(MajorOAS3, "Schema"))
	assert.Equal(t, "definitions", ComponentGroup(MajorOAS2, "Schema"))
	assert.Equal(t, "securitySchemes", ComponentGroup(MajorOAS3, "SecurityScheme"))
	assert.Empty(t, ComponentGroup(MajorOAS2, "Example"))
	assert.Empty(t, ComponentGroup(MajorOAS3, "PathItem"))
	assert.Equal(t, "parameters", ComponentGroup(MajorAsync2, "Parameter"))
	assert.Equal(t, "Schema", ComponentGroupType(MajorOAS2, "definitions"))
	assert.Equal(t, OAS3_1.Major(), MajorOAS3)
}
