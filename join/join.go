// Package join merges several OpenAPI 3 documents into one.
//
// Every entrypoint is bundled on its own first, then info and openapi are taken from the first document
// while servers, tags, paths, webhooks and components of all documents are merged. Operations without
// tags are tagged "<api>_other" and every document gets an x-tagGroups entry unless disabled. Clashing
// definitions are collected as Conflicts instead of being overwritten.
package join

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/speakeasy-api/refbundle/bundler"
	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/decorators"
	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	// ErrNotEnoughEntrypoints is returned when fewer than two documents are given.
	ErrNotEnoughEntrypoints = errors.Error("at least 2 apis should be provided")
	// ErrUnsupportedVersion is returned for entrypoints that are not OpenAPI 3 documents.
	ErrUnsupportedVersion = errors.Error("only OpenAPI 3 documents can be joined")
	// ErrInfoNotFound is returned when the first document has no info section.
	ErrInfoNotFound = errors.Error("info section is not found in specification")
	// ErrPrefixNotFound is returned when an info property used as a prefix is missing or not a string.
	ErrPrefixNotFound = errors.Error("prefix property is not found in info section")
	// ErrConflictingOptions is returned when tags are to be prefixed both by file name and by an info property.
	ErrConflictingOptions = errors.Error("prefix-tags-with-filename and prefix-tags-with-info-prop are mutually exclusive")
)

// RuleID is the rule id of the problems raised while joining.
const RuleID = "join"

// Options configures a join.
type Options struct {
	// Entrypoints lists the documents to join in order, at least two.
	Entrypoints []string
	Config      *config.Config
	Registry    *decorators.Registry
	// NewResolver builds the resolver of one entrypoint. Nil builds them from Config.
	NewResolver func() (*references.Resolver, error)

	// PrefixTagsWithInfoProp prefixes the tags of each document with the value of this info property.
	PrefixTagsWithInfoProp string
	// PrefixTagsWithFilename prefixes the tags of each document with its file name.
	PrefixTagsWithFilename bool
	// PrefixComponentsWithInfoProp prefixes component names, and the references to them, with the value of
	// this info property.
	PrefixComponentsWithInfoProp string
	// WithoutXTagGroups skips generating x-tagGroups.
	WithoutXTagGroups bool

	Logger *slog.Logger
}

// Result is the outcome of a join.
type Result struct {
	// Document is the root mapping of the joined document.
	Document *yaml.Node
	// Problems holds the problems of bundling every entrypoint and of joining them.
	Problems  []walk.Problem
	Conflicts []Conflict
	// FileDependencies lists every document read, in first-read order.
	FileDependencies []string
}

// HasConflicts reports whether any definitions clashed.
func (r *Result) HasConflicts() bool {
	return r != nil && len(r.Conflicts) > 0
}

// HasErrors reports whether any problem has error severity.
func (r *Result) HasErrors() bool {
	return r != nil && walk.HasErrors(r.Problems)
}

// Marshal renders the joined document in format with the given indentation. A zero indentation means 2.
func (r *Result) Marshal(format yml.OutputFormat, indentation int) ([]byte, error) {
	if r == nil || r.Document == nil {
		return nil, fmt.Errorf("no document to marshal")
	}
	return bundler.Marshal(r.Document, format, indentation)
}

// Join bundles every entrypoint concurrently and merges the bundles in entrypoint order.
func Join(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Entrypoints) < 2 {
		return nil, ErrNotEnoughEntrypoints
	}
	if opts.PrefixTagsWithFilename && opts.PrefixTagsWithInfoProp != "" {
		return nil, ErrConflictingOptions
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bundles, err := bundleAll(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	info := bundles[0].document.info()
	if info == nil {
		return nil, ErrInfoNotFound
	}
	if opts.PrefixComponentsWithInfoProp != "" {
		if _, err := infoPrefix(info, opts.PrefixComponentsWithInfoProp); err != nil {
			return nil, err
		}
	}

	j := newJoiner(opts)
	j.openapi = bundles[0].document.get("openapi")
	j.info = info

	res := &Result{}
	seenFiles := map[string]bool{}
	for _, b := range bundles {
		res.Problems = append(res.Problems, b.result.Problems...)
		for _, f := range b.result.FileDependencies {
			if !seenFiles[f] {
				seenFiles[f] = true
				res.FileDependencies = append(res.FileDependencies, f)
			}
		}

		if err := j.add(b.document); err != nil {
			return nil, err
		}
		logger.Debug("joined document", "entrypoint", b.document.entrypoint, "api", b.document.api)
	}

	res.Document = j.build()
	res.Problems = append(res.Problems, j.problems...)
	res.Conflicts = j.conflicts.list()
	return res, nil
}

type bundled struct {
	result   *bundler.Result
	document *apiDocument
}

func bundleAll(ctx context.Context, opts Options, logger *slog.Logger) ([]bundled, error) {
	bundles := make([]bundled, len(opts.Entrypoints))

	g, gctx := errgroup.WithContext(ctx)
	for i, entrypoint := range opts.Entrypoints {
		g.Go(func() error {
			bundleOpts := bundler.Options{
				Config:   opts.Config,
				Registry: opts.Registry,
				Logger:   logger.With("entrypoint", entrypoint),
			}
			// bundling mutates the cached documents, so resolvers are never shared
			if opts.NewResolver != nil {
				r, err := opts.NewResolver()
				if err != nil {
					return err
				}
				bundleOpts.Resolver = r
			}

			res, err := bundler.Bundle(gctx, entrypoint, bundleOpts)
			if err != nil {
				return fmt.Errorf("failed to bundle %s: %w", entrypoint, err)
			}
			if res.SpecVersion.Major() != types.MajorOAS3 {
				return fmt.Errorf("%s is %s: %w", entrypoint, res.SpecVersion, ErrUnsupportedVersion)
			}

			bundles[i] = bundled{
				result: res,
				document: &apiDocument{
					entrypoint: entrypoint,
					api:        apiName(res.Bundle.Source.AbsoluteRef),
					source:     res.Bundle.Source,
					root:       res.Bundle.Root,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bundles, nil
}

// apiName is the file name of a locator without its extension.
func apiName(locator string) string {
	base := path.Base(strings.TrimSuffix(locator, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

var whitespace = regexp.MustCompile(`\s`)

// infoPrefix returns the value of the info property prop with whitespace replaced by underscores.
func infoPrefix(info *yaml.Node, prop string) (string, error) {
	value, ok := yml.GetString(info, prop)
	if info == nil || !ok || value == "" {
		return "", fmt.Errorf("%q: %w", prop, ErrPrefixNotFound)
	}
	return whitespace.ReplaceAllString(value, "_"), nil
}

func addPrefix(name, prefix string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
