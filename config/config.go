// Package config loads the settings that drive resolving and bundling: how remote documents are fetched,
// which preprocessors and decorators run and with what options.
package config

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config is the content of a configuration file.
type Config struct {
	Resolve ResolveConfig `yaml:"resolve"`

	// Preprocessors and Decorators apply to every version, the version specific maps override them per rule id.
	Preprocessors RuleSettings `yaml:"preprocessors"`
	Decorators    RuleSettings `yaml:"decorators"`

	OAS2Preprocessors   RuleSettings `yaml:"oas2Preprocessors"`
	OAS3_0Preprocessors RuleSettings `yaml:"oas3_0Preprocessors"`
	OAS3_1Preprocessors RuleSettings `yaml:"oas3_1Preprocessors"`
	Async2Preprocessors RuleSettings `yaml:"async2Preprocessors"`

	OAS2Decorators   RuleSettings `yaml:"oas2Decorators"`
	OAS3_0Decorators RuleSettings `yaml:"oas3_0Decorators"`
	OAS3_1Decorators RuleSettings `yaml:"oas3_1Decorators"`
	Async2Decorators RuleSettings `yaml:"async2Decorators"`
}

// ResolveConfig configures reference resolution.
type ResolveConfig struct {
	// DoNotResolveExamples keeps `$ref`s inside example values as they are.
	DoNotResolveExamples bool `yaml:"doNotResolveExamples"`
	// RegistryPrefixes lists URL prefixes of an API registry. References starting with one of them
	// are left in place when bundling with registry references skipped.
	RegistryPrefixes []string   `yaml:"registryPrefixes"`
	HTTP             HTTPConfig `yaml:"http"`
}

// HTTPConfig configures remote fetches.
type HTTPConfig struct {
	RequestsPerSecond float64                 `yaml:"requestsPerSecond"`
	Burst             int                     `yaml:"burst"`
	Timeout           string                  `yaml:"timeout"`
	MaxDocumentSize   int64                   `yaml:"maxDocumentSize"`
	Headers           []references.HTTPHeader `yaml:"headers"`
}

// New returns an empty configuration: no preprocessors, no decorators and default fetch settings.
func New() *Config {
	return &Config{}
}

// PreprocessorsFor returns the preprocessor settings that apply to documents of version.
func (c *Config) PreprocessorsFor(version types.SpecVersion) RuleSettings {
	if c == nil {
		return RuleSettings{}
	}

	var specific RuleSettings
	switch version {
	case types.OAS2:
		specific = c.OAS2Preprocessors
	case types.OAS3_0:
		specific = c.OAS3_0Preprocessors
	case types.OAS3_1:
		specific = c.OAS3_1Preprocessors
	case types.Async2:
		specific = c.Async2Preprocessors
	}
	return c.Preprocessors.Merge(specific)
}

// DecoratorsFor returns the decorator settings that apply to documents of version.
func (c *Config) DecoratorsFor(version types.SpecVersion) RuleSettings {
	if c == nil {
		return RuleSettings{}
	}

	var specific RuleSettings
	switch version {
	case types.OAS2:
		specific = c.OAS2Decorators
	case types.OAS3_0:
		specific = c.OAS3_0Decorators
	case types.OAS3_1:
		specific = c.OAS3_1Decorators
	case types.Async2:
		specific = c.Async2Decorators
	}
	return c.Decorators.Merge(specific)
}

// TypeExtensions returns the type extensions implied by the resolve settings.
func (c *Config) TypeExtensions() []types.Extension {
	if c == nil || !c.Resolve.DoNotResolveExamples {
		return nil
	}
	return []types.Extension{types.NotResolvableExamples}
}

// IsRegistryRef reports whether ref points into one of the configured registries.
func (c *Config) IsRegistryRef(ref string) bool {
	if c == nil {
		return false
	}
	return slices.ContainsFunc(c.Resolve.RegistryPrefixes, func(prefix string) bool {
		return strings.HasPrefix(ref, prefix)
	})
}

// ResolverOptions turns the resolve settings into options for references.NewResolver.
func (c *Config) ResolverOptions(logger *slog.Logger) ([]references.Option, error) {
	var opts []references.Option
	if logger != nil {
		opts = append(opts, references.WithLogger(logger))
	}
	if c == nil {
		return opts, nil
	}

	h := c.Resolve.HTTP
	if len(h.Headers) > 0 {
		opts = append(opts, references.WithHTTPHeaders(h.Headers))
	}
	if h.RequestsPerSecond > 0 {
		burst := h.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, references.WithFetchRateLimit(rate.NewLimiter(rate.Limit(h.RequestsPerSecond), burst)))
	}
	if h.Timeout != "" {
		timeout, err := time.ParseDuration(h.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid resolve.http.timeout %q: %w", h.Timeout, err)
		}
		opts = append(opts, references.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	if h.MaxDocumentSize > 0 {
		opts = append(opts, references.WithMaxDocumentSize(h.MaxDocumentSize))
	}

	return opts, nil
}

// RuleSetting is the configuration of one preprocessor or decorator. In files it is either a bare
// severity ("error", "warn", "off" or "on") or a mapping with an optional severity and rule options.
type RuleSetting struct {
	Severity walk.Severity
	Options  map[string]any
}

var _ yaml.Unmarshaler = (*RuleSetting)(nil)

func (r *RuleSetting) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		severity, err := walk.ParseSeverity(value.Value)
		if err != nil {
			return err
		}
		*r = RuleSetting{Severity: severity}
		return nil
	case yaml.MappingNode:
		var raw map[string]any
		if err := value.Decode(&raw); err != nil {
			return err
		}

		setting := RuleSetting{Severity: walk.SeverityError}
		if s, ok := raw["severity"]; ok {
			str, ok := s.(string)
			if !ok {
				return fmt.Errorf("severity must be a string, got %T", s)
			}
			severity, err := walk.ParseSeverity(str)
			if err != nil {
				return err
			}
			setting.Severity = severity
			delete(raw, "severity")
		}
		if len(raw) > 0 {
			setting.Options = raw
		}
		*r = setting
		return nil
	default:
		return fmt.Errorf("rule setting must be a severity or a mapping, got %s", value.ShortTag())
	}
}

// RuleSettings maps rule ids to their settings.
type RuleSettings map[string]RuleSetting

// Merge returns a copy of s with every entry of over replacing the entry of the same id.
func (s RuleSettings) Merge(over RuleSettings) RuleSettings {
	merged := make(RuleSettings, len(s)+len(over))
	maps.Copy(merged, s)
	maps.Copy(merged, over)
	return merged
}

// IDs returns the rule ids in lexical order.
func (s RuleSettings) IDs() []string {
	return slices.Sorted(maps.Keys(s))
}
