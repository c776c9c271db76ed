package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/speakeasy-api/refbundle/bundler"
	"github.com/speakeasy-api/refbundle/internal/watcher"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/spf13/cobra"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [file]",
	Short: "Bundle a document split over many files into a single file",
	Long: `Bundle an OpenAPI 2, OpenAPI 3 or AsyncAPI 2 document into a single self-contained document.

Every $ref to another file or URL is resolved. Referenced schemas, parameters,
responses and the other reusable objects are stored in the components of the
bundled document (definitions, parameters and responses for OpenAPI 2) and the
references are rewritten to point at them. Identical fragments are stored once,
different fragments competing for a name are renamed with a numbered suffix.
Anything without a components section is inlined.

The bundled document is written to stdout unless --output is given. Pass "-" or
pipe a document to read it from stdin; relative references are then resolved
against the working directory.

Problems found while bundling are printed to stderr. The command fails when any
of them is an error, an unresolvable $ref for example.`,
	Example: `  oasbundle bundle openapi.yaml --output dist/openapi.json
  oasbundle bundle openapi.yaml --dereference --ext json
  oasbundle bundle openapi.yaml -o dist/openapi.yaml --watch`,
	Args: stdinOrFileArgs,
	RunE: runBundle,
}

var (
	bundleOutput                 string
	bundleExt                    string
	bundleDereference            bool
	bundleKeepURLRefs            bool
	bundleRemoveUnusedComponents bool
	bundleSkipRegistryRefs       bool
	bundleWatch                  bool
)

const watchDebounce = 300 * time.Millisecond

func init() {
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "output file (defaults to stdout)")
	bundleCmd.Flags().StringVar(&bundleExt, "ext", "", "output format: json, yaml or yml (defaults to the extension of the output or input file)")
	bundleCmd.Flags().BoolVarP(&bundleDereference, "dereference", "d", false, "inline every reference that is not part of a cycle")
	bundleCmd.Flags().BoolVar(&bundleKeepURLRefs, "keep-url-refs", false, "leave references to absolute URLs untouched")
	bundleCmd.Flags().BoolVar(&bundleRemoveUnusedComponents, "remove-unused-components", false, "remove components no reference points at")
	bundleCmd.Flags().BoolVar(&bundleSkipRegistryRefs, "skip-registry-refs", false, "leave references into the configured registries untouched")
	bundleCmd.Flags().BoolVarP(&bundleWatch, "watch", "w", false, "bundle again whenever one of the bundled files changes")
}

func stdinOrFileArgs(_ *cobra.Command, args []string) error {
	switch {
	case len(args) > 1:
		return fmt.Errorf("accepts at most 1 arg, received %d", len(args))
	case len(args) == 0 && !stdinIsPiped():
		return errors.New("requires a file argument, or pipe data to stdin")
	}
	return nil
}

func runBundle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(cmd)

	input := stdinIndicator
	if len(args) > 0 {
		input = args[0]
	}
	if bundleWatch && isStdin(input) {
		return errors.New("cannot use --watch when reading from stdin")
	}

	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	format, err := outputFormat(bundleExt, bundleOutput, input)
	if err != nil {
		return err
	}

	b := &bundleRun{
		input:  input,
		output: bundleOutput,
		format: format,
		opts: bundler.Options{
			Config:                 cfg,
			Dereference:            bundleDereference,
			KeepURLRefs:            bundleKeepURLRefs,
			RemoveUnusedComponents: bundleRemoveUnusedComponents,
			SkipRegistryRefs:       bundleSkipRegistryRefs,
			Logger:                 logger,
		},
		stdin:  cmd.InOrStdin(),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}

	deps, err := b.run(ctx)
	if !bundleWatch {
		return err
	}
	if err != nil {
		logger.Error("bundle failed", "error", err)
	}
	if len(deps) == 0 {
		deps = []string{input}
	}
	return b.watch(ctx, logger, deps)
}

// bundleRun bundles one input into one output.
type bundleRun struct {
	input  string
	output string
	format yml.OutputFormat
	opts   bundler.Options

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// run bundles the input once and returns the files it depends on. An error is returned when the
// bundle failed or reported error problems, the file dependencies are returned either way when known.
func (b *bundleRun) run(ctx context.Context) ([]string, error) {
	start := time.Now()

	res, err := b.bundle(ctx)
	if err != nil {
		return nil, err
	}

	errorCount := reportProblems(b.stderr, res.Problems)

	data, err := res.Marshal(b.format, 2)
	if err != nil {
		return res.FileDependencies, err
	}
	if err := writeOutput(b.stdout, b.output, data); err != nil {
		return res.FileDependencies, err
	}

	if b.output != "" {
		reportElapsed(b.stderr, displayName(b.input), "bundle to "+displayName(b.output), time.Since(start))
	}

	if errorCount > 0 {
		return res.FileDependencies, fmt.Errorf("bundle of %s reported %d error(s)", displayName(b.input), errorCount)
	}
	return res.FileDependencies, nil
}

func (b *bundleRun) bundle(ctx context.Context) (*bundler.Result, error) {
	if !isStdin(b.input) {
		return bundler.Bundle(ctx, b.input, b.opts)
	}

	data, err := io.ReadAll(b.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return bundler.BundleFromString(ctx, string(data), filepath.ToSlash(filepath.Join(wd, "stdin.yaml")), b.opts)
}

// watch bundles again whenever one of deps changes, until ctx is done.
func (b *bundleRun) watch(ctx context.Context, logger *slog.Logger, deps []string) error {
	changes := make(chan []string, 1)
	w, err := watcher.New(watchDebounce, logger, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// a rebundle is already queued and will see this change too
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.SetFiles(deps); err != nil {
		return fmt.Errorf("failed to watch files: %w", err)
	}
	fmt.Fprintf(b.stderr, "Watching %d file(s) for changes...\n", len(w.Files()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			logger.Info("files changed", "paths", paths)

			deps, err := b.run(ctx)
			if err != nil {
				logger.Error("bundle failed", "error", err)
			}
			if len(deps) == 0 {
				continue
			}
			if err := w.SetFiles(deps); err != nil {
				logger.Warn("failed to update watched files", "error", err)
			}
		}
	}
}
