package decorators

import (
	"fmt"
	"maps"
	"slices"

	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

const MediaTypeExamplesOverrideID = "media-type-examples-override"

type mediaTypeExamplesOverride struct{}

var _ Decorator = (*mediaTypeExamplesOverride)(nil)

func (d *mediaTypeExamplesOverride) ID() string { return MediaTypeExamplesOverrideID }
func (d *mediaTypeExamplesOverride) Kind() Kind { return KindPreprocessor }
func (d *mediaTypeExamplesOverride) Description() string {
	return "Replaces the examples of request and response media types with references to example files."
}

func (d *mediaTypeExamplesOverride) Versions() []types.SpecMajorVersion {
	return []types.SpecMajorVersion{types.MajorOAS3}
}

// OperationExamples maps media types to the file holding their examples, for the request body and
// for each response code of one operation.
type OperationExamples struct {
	Request   map[string]string            `yaml:"request"`
	Responses map[string]map[string]string `yaml:"responses"`
}

type mediaTypeExamplesOverrideOptions struct {
	OperationIDs map[string]OperationExamples `yaml:"operationIds"`
}

func (d *mediaTypeExamplesOverride) Visitor(_ types.SpecVersion, options map[string]any) (walk.Visitor, error) {
	var opts mediaTypeExamplesOverrideOptions
	if err := decodeOptions(options, &opts); err != nil {
		return walk.Visitor{}, err
	}
	if len(opts.OperationIDs) == 0 {
		return walk.Visitor{}, ErrInvalidOptions.Wrap(fmt.Errorf("operationIds is required"))
	}
	return NewMediaTypeExamplesOverride(opts.OperationIDs), nil
}

// NewMediaTypeExamplesOverride returns the preprocessor pointing the `examples` of the configured
// media types at `$ref`s to the given files. File references are written as is, so they resolve
// relative to the document holding the operation. Referenced responses and request bodies are
// copied into the operation before they are changed.
func NewMediaTypeExamplesOverride(operations map[string]OperationExamples) walk.Visitor {
	return walk.Visitor{
		Ref: walk.RefVisitor{
			Enter: func(_ *yaml.Node, _ walk.ResolveResult, _ *walk.UserContext) walk.RefAction {
				return walk.DescendIntoTarget
			},
		},
		Types: map[string]walk.NodeVisitor{
			"Operation": {
				Enter: func(op *yaml.Node, ctx *walk.UserContext) {
					id, ok := yml.GetString(op, "operationId")
					if !ok {
						return
					}
					override, ok := operations[id]
					if !ok {
						return
					}

					if responses := yml.GetMapElement(op, "responses"); responses != nil && len(override.Responses) > 0 {
						for _, code := range slices.Sorted(maps.Keys(override.Responses)) {
							idx := yml.GetMapElementIndex(responses, code)
							if idx < 0 {
								continue
							}
							response, ok := editable(responses.Content[idx], ctx)
							if !ok {
								continue
							}
							responses.Content[idx] = response
							overrideExamples(yml.EnsureMapElement(response, "content"), override.Responses[code], ctx)
						}
					}

					if idx := yml.GetMapElementIndex(op, "requestBody"); idx >= 0 && len(override.Request) > 0 {
						body, ok := editable(op.Content[idx], ctx)
						if !ok {
							return
						}
						op.Content[idx] = body
						overrideExamples(yml.EnsureMapElement(body, "content"), override.Request, ctx)
					}
				},
			},
		},
	}
}

func overrideExamples(content *yaml.Node, files map[string]string, ctx *walk.UserContext) {
	for _, mime := range slices.Sorted(maps.Keys(files)) {
		mediaType := yml.CreateMapNode()
		if idx := yml.GetMapElementIndex(content, mime); idx >= 0 {
			existing, ok := editable(content.Content[idx], ctx)
			if !ok {
				continue
			}
			mediaType = existing
		}
		yml.SetMapElement(mediaType, "examples", yml.CreateRefNode(files[mime]))
		yml.SetMapElement(content, mime, mediaType)
	}
}

// editable returns node, or a copy of its target when node is a reference into the same document.
func editable(node *yaml.Node, ctx *walk.UserContext) (*yaml.Node, bool) {
	node = yml.ResolveAlias(node)
	if !references.IsRef(node) {
		return node, node != nil && node.Kind == yaml.MappingNode
	}

	resolved := ctx.Resolve(node)
	if !resolved.Resolved() {
		return nil, false
	}
	if resolved.IsRemote {
		ctx.Report(walk.Problem{
			Message:  "Can't override examples of a definition from another document, inline it first.",
			Severity: walk.SeverityWarn,
		})
		return nil, false
	}

	target := yml.ResolveAlias(resolved.Node)
	if target.Kind != yaml.MappingNode {
		return nil, false
	}
	return yml.Clone(target), true
}
