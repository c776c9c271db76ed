// Package bundler turns a document split over many files into a single self-contained document.
//
// Referenced fragments are stored in the component groups of the root document (or inlined when their
// type has no group) and references are rewritten to point at them. Identical fragments are stored once,
// different fragments competing for a name get numbered suffixes.
package bundler

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/decorators"
	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
)

// Bundle loads the document at ref, resolved against opts.Base, and bundles it.
// A root document that cannot be fetched or parsed is returned as an error, every other failure is a Problem.
func Bundle(ctx context.Context, ref string, opts Options) (*Result, error) {
	if ref == "" {
		return nil, errors.ErrDocumentRequired
	}

	resolver, err := resolverFor(opts)
	if err != nil {
		return nil, err
	}
	opts.Resolver = resolver

	doc, err := resolver.ResolveDocument(ctx, opts.Base, ref, true)
	if err != nil {
		return nil, err
	}

	return BundleDocument(ctx, doc, opts)
}

// BundleFromString parses source as the root document located at absoluteRef ("/" when empty) and bundles it.
func BundleFromString(ctx context.Context, source, absoluteRef string, opts Options) (*Result, error) {
	if absoluteRef == "" {
		absoluteRef = "/"
	}

	doc, err := references.MakeDocumentFromString(source, absoluteRef)
	if err != nil {
		return nil, err
	}

	return BundleDocument(ctx, doc, opts)
}

// BundleDocument bundles doc in place.
//
// The passes are: resolve references, run the configured preprocessors and resolve again, bundle,
// resolve the bundled document and run the configured decorators. An unsupported document is
// returned as an error.
func BundleDocument(ctx context.Context, doc *references.Document, opts Options) (*Result, error) {
	if doc == nil || doc.Source == nil || doc.Root == nil {
		return nil, errors.ErrDocumentRequired
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	registry := opts.Registry
	if registry == nil {
		registry = decorators.Default()
	}
	resolver, err := resolverFor(opts)
	if err != nil {
		return nil, err
	}

	version, err := types.DetectSpec(doc.Root)
	if err != nil {
		return nil, err
	}
	major := version.Major()

	extensions := append(cfg.TypeExtensions(), opts.Extensions...)
	typs, err := types.Build(version, opts.CustomTypes, extensions...)
	if err != nil {
		return nil, err
	}
	rootType := typs.Root

	preprocessors, err := registry.VisitorSet(cfg.PreprocessorsFor(version), decorators.KindPreprocessor, version)
	if err != nil {
		return nil, err
	}
	decoratorSet, err := registry.VisitorSet(cfg.DecoratorsFor(version), decorators.KindDecorator, version)
	if err != nil {
		return nil, err
	}
	if opts.RemoveUnusedComponents && !slices.ContainsFunc(decoratorSet, func(e walk.Entry) bool {
		return e.RuleID == decorators.RemoveUnusedComponentsID
	}) {
		decoratorSet = append(decoratorSet, walk.Entry{
			RuleID:   decorators.RemoveUnusedComponentsID,
			Severity: walk.SeverityError,
			Visitor:  decorators.NewRemoveUnusedComponents(major),
		})
	}

	wctx := walk.NewContext(version)
	logger.Debug("bundling document", "locator", doc.Source.AbsoluteRef, "version", version)

	refs, err := resolveRefs(ctx, logger, doc, rootType, resolver)
	if err != nil {
		return nil, err
	}

	if len(preprocessors) > 0 {
		if err := runPass(logger, "preprocessors", doc, rootType, preprocessors, refs, wctx); err != nil {
			return nil, err
		}
		// preprocessors can add references
		if refs, err = resolveRefs(ctx, logger, doc, rootType, resolver); err != nil {
			return nil, err
		}
	}

	bundleSet := walk.VisitorSet{{
		RuleID:   BundlerRuleID,
		Severity: walk.SeverityError,
		Visitor:  newBundleVisitor(major, doc, cfg, opts).visitor(),
	}}
	if err := runPass(logger, "bundle", doc, rootType, bundleSet, refs, wctx); err != nil {
		return nil, err
	}

	if len(decoratorSet) > 0 {
		if refs, err = resolveRefs(ctx, logger, doc, rootType, resolver); err != nil {
			return nil, err
		}
		if err := runPass(logger, "decorators", doc, rootType, decoratorSet, refs, wctx); err != nil {
			return nil, err
		}
	}

	return &Result{
		Bundle:           doc,
		Problems:         wctx.Problems,
		FileDependencies: resolver.FileDependencies(),
		SpecVersion:      version,
		RootType:         rootType,
		RefTypes:         wctx.RefTypes,
		VisitorsData:     wctx.VisitorsData,
	}, nil
}

func resolverFor(opts Options) (*references.Resolver, error) {
	if opts.Resolver != nil {
		return opts.Resolver, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolverOpts, err := opts.Config.ResolverOptions(logger)
	if err != nil {
		return nil, err
	}
	return references.NewResolver(resolverOpts...)
}

func resolveRefs(ctx context.Context, logger *slog.Logger, doc *references.Document, rootType *types.Type, resolver *references.Resolver) (references.ResolvedRefMap, error) {
	start := time.Now()
	refs, err := references.ResolveDocumentRefs(ctx, doc, rootType, resolver)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved references", "count", len(refs), "duration", time.Since(start))
	return refs, nil
}

func runPass(logger *slog.Logger, name string, doc *references.Document, rootType *types.Type, set walk.VisitorSet, refs references.ResolvedRefMap, wctx *walk.Context) error {
	start := time.Now()
	if err := walk.Walk(doc, rootType, set, refs, wctx); err != nil {
		return err
	}
	logger.Debug("pass finished", "pass", name, "visitors", len(set), "problems", len(wctx.Problems), "duration", time.Since(start))
	return nil
}
