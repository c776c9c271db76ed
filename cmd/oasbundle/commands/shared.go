// Package commands implements the oasbundle subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/spf13/cobra"
)

// stdinIndicator is the conventional Unix indicator to read from stdin.
const stdinIndicator = "-"

// Apply adds the oasbundle subcommands to root.
func Apply(root *cobra.Command) {
	root.AddCommand(bundleCmd)
	root.AddCommand(joinCmd)
	root.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cmd.Root().Name(), cmd.Root().Version)
	},
}

func isStdin(path string) bool {
	return path == stdinIndicator
}

// stdinIsPiped returns true when stdin is connected to a pipe (not a terminal).
func stdinIsPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// newLogger logs to stderr, at debug level with --verbose and warnings only otherwise.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the file given with --config, or a default configuration file from the working
// directory. Without either the defaults apply.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		found, ok := config.Find(wd)
		if !ok {
			return config.New(), nil
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", path)
	return cfg, nil
}

// outputFormat picks the format from --ext, then the output file, then the input file.
func outputFormat(ext, output, input string) (yml.OutputFormat, error) {
	if ext != "" {
		return yml.ParseOutputFormat(ext)
	}
	if output != "" {
		return yml.FormatFromPath(output, yml.OutputFormatYAML), nil
	}
	if input != "" && !isStdin(input) {
		return yml.FormatFromPath(input, yml.OutputFormatYAML), nil
	}
	return yml.OutputFormatYAML, nil
}

// writeOutput writes data to path, creating its directory, or to stdout when path is empty.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(cleanPath, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// reportProblems prints problems to w and returns the number of errors among them.
func reportProblems(w io.Writer, problems []walk.Problem) int {
	errs, warnings := 0, 0
	for _, p := range problems {
		switch p.Severity {
		case walk.SeverityError:
			errs++
		case walk.SeverityWarn:
			warnings++
		}
		fmt.Fprintf(w, "[%s] %s: %s\n  at %s\n", p.Severity, p.RuleID, p.Message, p.Location)
	}
	if len(problems) > 0 {
		fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warnings)
	}
	return errs
}

// elapsedMillis rounds elapsed up to whole milliseconds.
func elapsedMillis(elapsed time.Duration) int64 {
	return int64((elapsed + time.Millisecond - 1) / time.Millisecond)
}

func reportElapsed(w io.Writer, file, action string, elapsed time.Duration) {
	fmt.Fprintf(w, "%s: %s processed in %dms\n", file, action, elapsedMillis(elapsed))
}

// displayName is the path shown for a file in messages.
func displayName(path string) string {
	if path == "" || isStdin(path) {
		return "stdin"
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func defaultJoinOutput(firstEntrypoint string) string {
	switch ext := strings.ToLower(filepath.Ext(firstEntrypoint)); ext {
	case ".json", ".yml", ".yaml":
		return "openapi" + ext
	default:
		return "openapi.yaml"
	}
}
