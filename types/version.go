package types

import (
	"fmt"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/internal/version"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedSpec is returned when a document is not a supported OpenAPI or AsyncAPI version.
const ErrUnsupportedSpec = errors.Error("unsupported specification")

// SpecVersion identifies the specification version a document is written against.
type SpecVersion string

const (
	OAS2   SpecVersion = "oas2"
	OAS3_0 SpecVersion = "oas3_0"
	OAS3_1 SpecVersion = "oas3_1"
	Async2 SpecVersion = "async2"
)

// SpecMajorVersion groups versions that share bundling rules.
type SpecMajorVersion string

const (
	MajorOAS2   SpecMajorVersion = "oas2"
	MajorOAS3   SpecMajorVersion = "oas3"
	MajorAsync2 SpecMajorVersion = "async2"
)

// Versions lists every supported SpecVersion.
var Versions = []SpecVersion{OAS2, OAS3_0, OAS3_1, Async2}

// Major returns the major version group of v.
func (v SpecVersion) Major() SpecMajorVersion {
	switch v {
	case OAS2:
		return MajorOAS2
	case Async2:
		return MajorAsync2
	default:
		return MajorOAS3
	}
}

// DetectSpec determines the specification version from the root mapping of a document.
func DetectSpec(root *yaml.Node) (SpecVersion, error) {
	root = yml.ResolveAlias(root)
	if !yml.IsMapping(root) {
		return "", ErrUnsupportedSpec.Wrap(fmt.Errorf("document root is a %s, expected an object", yml.NodeKindToString(kindOf(root))))
	}

	if field := yml.GetMapElement(root, "openapi"); field != nil {
		v, err := parseVersionField("openapi", field)
		if err != nil {
			return "", err
		}
		switch {
		case v.Major == 3 && v.Minor == 0:
			return OAS3_0, nil
		case v.Major == 3 && v.Minor == 1:
			return OAS3_1, nil
		default:
			return "", ErrUnsupportedSpec.Wrap(fmt.Errorf("unsupported OpenAPI version: %s", field.Value))
		}
	}

	if field := yml.GetMapElement(root, "swagger"); field != nil {
		v, err := parseVersionField("swagger", field)
		if err != nil {
			return "", err
		}
		if v.Major == 2 && v.Minor == 0 {
			return OAS2, nil
		}
		return "", ErrUnsupportedSpec.Wrap(fmt.Errorf("unsupported Swagger version: %s", field.Value))
	}

	if field := yml.GetMapElement(root, "asyncapi"); field != nil {
		v, err := parseVersionField("asyncapi", field)
		if err != nil {
			return "", err
		}
		if v.Major == 2 {
			return Async2, nil
		}
		return "", ErrUnsupportedSpec.Wrap(fmt.Errorf("unsupported AsyncAPI version: %s", field.Value))
	}

	return "", ErrUnsupportedSpec.Wrap(errors.New("missing openapi, swagger or asyncapi field"))
}

func parseVersionField(name string, field *yaml.Node) (*version.Version, error) {
	if field.Kind != yaml.ScalarNode || field.Tag != "!!str" {
		return nil, ErrUnsupportedSpec.Wrap(fmt.Errorf("invalid %s version: should be a string but got %s", name, describe(field)))
	}
	v, err := version.Parse(field.Value)
	if err != nil {
		return nil, ErrUnsupportedSpec.Wrap(fmt.Errorf("invalid %s version: %w", name, err))
	}
	return v, nil
}

func describe(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return yml.NodeTagToString(node.Tag)
	}
	return yml.NodeKindToString(node.Kind)
}

func kindOf(node *yaml.Node) yaml.Kind {
	if node == nil {
		return 0
	}
	return node.Kind
}
