package bundler

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/decorators"
	"github.com/speakeasy-api/refbundle/json"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// Options represents the options available when bundling a document.
type Options struct {
	// Resolver fetches and caches documents. When nil a Resolver is built from the resolve section of Config.
	// Bundling mutates the documents a Resolver holds, so a Resolver should not be shared between bundles.
	Resolver *references.Resolver
	// Config holds the configured preprocessors, decorators and resolve settings. Nil means defaults.
	Config *config.Config
	// Registry is where configured preprocessors and decorators are looked up. Nil means decorators.Default().
	Registry *decorators.Registry
	// Dereference inlines every resolvable reference. Components are still collected, references on a
	// cycle point at them.
	Dereference bool
	// Base is the location relative references of the root document are resolved against.
	Base string
	// SkipRegistryRefs leaves references starting with one of the configured registry prefixes untouched.
	SkipRegistryRefs bool
	// RemoveUnusedComponents runs the remove-unused-components decorator after bundling.
	RemoveUnusedComponents bool
	// KeepURLRefs leaves references to absolute URLs untouched.
	KeepURLRefs bool
	// CustomTypes replaces the built-in type table of the detected version.
	CustomTypes map[string]*types.NodeType
	// Extensions are applied to the type table after the configured ones.
	Extensions []types.Extension
	Logger     *slog.Logger
}

// Result is the outcome of a bundle.
type Result struct {
	// Bundle is the root document, mutated in place into the bundled document.
	Bundle   *references.Document
	Problems []walk.Problem
	// FileDependencies lists every document read while bundling, in first-read order.
	FileDependencies []string
	SpecVersion      types.SpecVersion
	RootType         *types.Type
	RefTypes         map[references.RefID]*types.Type
	VisitorsData     map[string]map[string]any
}

// HasErrors reports whether any problem has error severity.
func (r *Result) HasErrors() bool {
	return r != nil && walk.HasErrors(r.Problems)
}

// Marshal renders the bundled document in format with the given indentation. A zero indentation means 2.
func (r *Result) Marshal(format yml.OutputFormat, indentation int) ([]byte, error) {
	if r == nil || r.Bundle == nil {
		return nil, fmt.Errorf("no bundle to marshal")
	}
	return Marshal(r.Bundle.Root, format, indentation)
}

// Marshal renders node as YAML or JSON with the given indentation. A zero indentation means 2.
// JSON output keeps the key order of the document.
func Marshal(node *yaml.Node, format yml.OutputFormat, indentation int) ([]byte, error) {
	if indentation <= 0 {
		indentation = 2
	}

	switch format {
	case yml.OutputFormatJSON:
		var buf bytes.Buffer
		if err := json.YAMLToJSON(node, indentation, &buf); err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return buf.Bytes(), nil
	case yml.OutputFormatYAML, "":
		return yml.MarshalYAML(node, &yml.Config{Indentation: indentation, OutputFormat: yml.OutputFormatYAML})
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
