package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/speakeasy-api/refbundle/join"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join <file> <file>...",
	Short: "Join several OpenAPI 3 documents into one",
	Long: `Join several OpenAPI 3 documents into one.

Every document is bundled first. The openapi version and info section are taken
from the first document; servers, tags, paths, webhooks and components of all
documents are merged. Operations without tags are tagged <file>_other and the
tags of every document are grouped under x-tagGroups.

The same operation, operationId or component defined differently by two documents
is a conflict and fails the command. Prefix tags or components to tell them apart.

The result is written to openapi.<extension of the first file> unless --output is given.`,
	Example: `  oasbundle join museum.yaml tickets.json
  oasbundle join museum.yaml tickets.yaml --prefix-components-with-info-prop title -o dist/api.yaml`,
	Args: cobra.MinimumNArgs(2),
	RunE: runJoin,
}

var (
	joinOutput                       string
	joinPrefixTagsWithInfoProp       string
	joinPrefixTagsWithFilename       bool
	joinPrefixComponentsWithInfoProp string
	joinWithoutXTagGroups            bool
)

func init() {
	joinCmd.Flags().StringVarP(&joinOutput, "output", "o", "", "output file (defaults to openapi.<extension of the first file>)")
	joinCmd.Flags().StringVar(&joinPrefixTagsWithInfoProp, "prefix-tags-with-info-prop", "", "prefix the tags of each document with the value of this info property")
	joinCmd.Flags().BoolVar(&joinPrefixTagsWithFilename, "prefix-tags-with-filename", false, "prefix the tags of each document with its file name")
	joinCmd.Flags().StringVar(&joinPrefixComponentsWithInfoProp, "prefix-components-with-info-prop", "", "prefix the components of each document with the value of this info property")
	joinCmd.Flags().BoolVar(&joinWithoutXTagGroups, "without-x-tag-groups", false, "do not group tags under x-tagGroups")
}

func runJoin(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}

	return joinFiles(cmd.Context(), joinOutput, join.Options{
		Entrypoints:                  args,
		Config:                       cfg,
		PrefixTagsWithInfoProp:       joinPrefixTagsWithInfoProp,
		PrefixTagsWithFilename:       joinPrefixTagsWithFilename,
		PrefixComponentsWithInfoProp: joinPrefixComponentsWithInfoProp,
		WithoutXTagGroups:            joinWithoutXTagGroups,
		Logger:                       logger,
	}, cmd.ErrOrStderr())
}

// joinFiles joins opts.Entrypoints and writes the result to output, openapi.<ext> when empty.
func joinFiles(ctx context.Context, output string, opts join.Options, stderr io.Writer) error {
	start := time.Now()

	res, err := join.Join(ctx, opts)
	if err != nil {
		return err
	}

	errorCount := reportProblems(stderr, res.Problems)
	if res.HasConflicts() {
		for _, c := range res.Conflicts {
			fmt.Fprintln(stderr, c.Error())
		}
		return fmt.Errorf("found %d conflict(s), please fix them before running join", len(res.Conflicts))
	}
	if errorCount > 0 {
		return fmt.Errorf("bundling the documents reported %d error(s)", errorCount)
	}

	if output == "" {
		output = defaultJoinOutput(opts.Entrypoints[0])
	}
	data, err := res.Marshal(yml.FormatFromPath(output, yml.OutputFormatYAML), 2)
	if err != nil {
		return err
	}
	if err := writeOutput(nil, output, data); err != nil {
		return err
	}

	reportElapsed(stderr, displayName(output), "join", time.Since(start))
	return nil
}
