package references

import (
	"mime"
	"path"
	"strings"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/internal/utils"
	"gopkg.in/yaml.v3"
)

// Source is the raw content of one document and the locator it was read from.
type Source struct {
	AbsoluteRef string
	Body        []byte
	MimeType    string
}

// Document is a parsed Source. Root is the top level node of the document (never a DocumentNode),
// it is shared by every reference into the document and is mutated in place by bundling.
type Document struct {
	Source *Source
	Root   *yaml.Node
}

// ParseDocument parses body as YAML (which includes JSON) into a Document located at absoluteRef.
func ParseDocument(body []byte, absoluteRef string) (*Document, error) {
	return parseSource(&Source{AbsoluteRef: absoluteRef, Body: body}, true)
}

// MakeDocumentFromString parses source into a Document located at absoluteRef.
func MakeDocumentFromString(source, absoluteRef string) (*Document, error) {
	return ParseDocument([]byte(source), absoluteRef)
}

// parseSource parses src as a YAML/JSON document when it is the root document or looks like one,
// anything else (Markdown, plain text, ...) becomes a single string scalar holding the body.
func parseSource(src *Source, isRoot bool) (*Document, error) {
	if !isRoot && !isStructuredSource(src) {
		return &Document{
			Source: src,
			Root: &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Value: string(src.Body),
			},
		}, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(src.Body, &node); err != nil {
		return nil, errors.NewParseError(src.AbsoluteRef, err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			root = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		} else {
			root = root.Content[0]
		}
	} else if root.Kind == 0 {
		root = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}

	return &Document{Source: src, Root: root}, nil
}

func isStructuredSource(src *Source) bool {
	if src.MimeType != "" {
		mediaType, _, err := mime.ParseMediaType(src.MimeType)
		if err == nil && (strings.Contains(mediaType, "json") || strings.Contains(mediaType, "yaml") || strings.Contains(mediaType, "openapi")) {
			return true
		}
	}

	locator := src.AbsoluteRef
	if c, err := utils.ClassifyReference(locator); err == nil && c.ParsedURL != nil {
		locator = c.ParsedURL.Path
	}

	switch strings.ToLower(path.Ext(locator)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
