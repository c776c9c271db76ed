package references

import (
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// HTTPHeader is added to remote fetches whose URL matches the Matches glob pattern.
// The value is taken from EnvVariable when set, Value otherwise.
type HTTPHeader struct {
	Matches     string `yaml:"matches" toml:"matches"`
	Name        string `yaml:"name" toml:"name"`
	Value       string `yaml:"value,omitempty" toml:"value,omitempty"`
	EnvVariable string `yaml:"envVariable,omitempty" toml:"envVariable,omitempty"`
}

type compiledHeader struct {
	pattern glob.Glob
	name    string
	value   string
}

func (h compiledHeader) matches(url string) bool {
	return h.pattern.Match(strings.ToLower(url))
}

func compileHeaders(headers []HTTPHeader) ([]compiledHeader, error) {
	compiled := make([]compiledHeader, 0, len(headers))
	for _, h := range headers {
		if h.Matches == "" || h.Name == "" {
			return nil, fmt.Errorf("http header requires both matches and name: %+v", h)
		}

		// "**" crosses path segments, "*" stays within one
		g, err := glob.Compile(strings.ToLower(h.Matches), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid http header pattern %q: %w", h.Matches, err)
		}

		value := h.Value
		if h.EnvVariable != "" {
			value = os.Getenv(h.EnvVariable)
		}

		compiled = append(compiled, compiledHeader{pattern: g, name: h.Name, value: value})
	}
	return compiled, nil
}
