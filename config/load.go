package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/json"
	"gopkg.in/yaml.v3"
)

const (
	// ErrInvalidConfig is returned when a configuration file does not match the configuration schema.
	ErrInvalidConfig = errors.Error("invalid config")
)

// DefaultFileNames are looked up in the working directory when no configuration file is given.
var DefaultFileNames = []string{"oasbundle.yaml", "oasbundle.yml", "oasbundle.toml"}

// Format is the syntax of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension. JSON files are read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find returns the first default configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Parse decodes and validates configuration data. Both formats are converted to the same JSON
// representation, validated against the configuration schema and then decoded.
func Parse(data []byte, format Format) (*Config, error) {
	canonical, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	if err := validate(canonical); err != nil {
		return nil, err
	}

	cfg := New()
	if err := yaml.Unmarshal(canonical, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func toJSON(data []byte, format Format) ([]byte, error) {
	if format == FormatTOML {
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse toml config: %w", err)
		}
		if len(raw) == 0 {
			return []byte("{}"), nil
		}
		// yaml.v3 renders every TOML value type, which lets both formats share the conversion below
		converted, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to convert toml config: %w", err)
		}
		data = converted
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	if err := json.YAMLToJSON(&node, 0, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}
	return buf.Bytes(), nil
}
