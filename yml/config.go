package yml

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat accepts the extension spellings used on the command line.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return OutputFormatJSON, nil
	case "yaml", "yml":
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: expected json, yaml or yml", s)
	}
}

// FormatFromPath picks the output format from a file extension, falling back to def.
func FormatFromPath(path string, def OutputFormat) OutputFormat {
	if f, err := ParseOutputFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return def
}

type Config struct {
	Indentation     int          // The indentation level of the document
	OutputFormat    OutputFormat // The output format to use when marshalling
	OriginalFormat  OutputFormat // The original input format, helps detect when we are changing formats
	TrailingNewline bool         // Whether the original document had a trailing newline
}

var defaultConfig = Config{
	Indentation:  2,
	OutputFormat: OutputFormatYAML,
}

func GetDefaultConfig() *Config {
	cfg := defaultConfig
	return &cfg
}

// GetConfigFromDoc inspects raw document text for its format and indentation.
func GetConfigFromDoc(data []byte) *Config {
	cfg := defaultConfig

	cfg.OutputFormat, cfg.Indentation = inspectData(data)
	cfg.OriginalFormat = cfg.OutputFormat
	cfg.TrailingNewline = len(data) > 0 && data[len(data)-1] == '\n'

	return &cfg
}

func inspectData(data []byte) (OutputFormat, int) {
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))

	docFormat := OutputFormatYAML
	indentation := 2
	foundIndentation := false
	foundDocFormat := false
	minLeading := -1

	for i, line := range lines {
		trimLine := bytes.TrimSpace(line)
		if len(trimLine) == 0 || trimLine[0] == '#' {
			continue
		}

		if !foundDocFormat {
			if trimLine[0] == '{' {
				docFormat = OutputFormatJSON
			}
			foundDocFormat = true
		}

		leading := 0
		for leading < len(line) && line[leading] == ' ' {
			leading++
		}
		if minLeading == -1 || leading < minLeading {
			minLeading = leading
		}
		if leading > minLeading && !foundIndentation {
			indentation = leading - minLeading
			foundIndentation = true
		}

		if foundIndentation || i > 10 {
			break
		}
	}

	return docFormat, indentation
}

// MarshalYAML renders node as YAML with the configured indentation.
func MarshalYAML(node *yaml.Node, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(cfg.Indentation)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
