package hashing_test

import (
	"testing"

	"github.com/speakeasy-api/refbundle/hashing"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return &doc
}

func TestHash_ConsistentWithDeepEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		a     string
		b     string
		equal bool
	}{
		{
			name:  "json vs yaml",
			a:     `{"type":"object","required":["id"],"properties":{"id":{"type":"integer"}}}`,
			b:     "properties:\n  id:\n    type: integer\nrequired: [id]\ntype: object\n",
			equal: true,
		},
		{
			name:  "numbers by value",
			a:     "maximum: 10.0",
			b:     "maximum: 10",
			equal: true,
		},
		{
			name:  "different values",
			a:     "type: string",
			b:     "type: integer",
			equal: false,
		},
		{
			name:  "string vs number",
			a:     "a: '1'",
			b:     "a: 1",
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := parse(t, tt.a), parse(t, tt.b)

			assert.Equal(t, tt.equal, yml.DeepEqual(a, b))
			if tt.equal {
				assert.Equal(t, hashing.Hash(a), hashing.Hash(b))
			} else {
				assert.NotEqual(t, hashing.Hash(a), hashing.Hash(b))
			}
		})
	}
}

func TestHash_Format(t *testing.T) {
	t.Parallel()

	h := hashing.Hash(parse(t, "a: 1"))
	assert.Len(t, h, 16)
	assert.Equal(t, h, hashing.Hash(parse(t, "a: 1")))
}
