package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speakeasy-api/refbundle/bundler"
	"github.com/speakeasy-api/refbundle/join"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

const petsAPI = `openapi: 3.1.0
info:
  title: Pets
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                $ref: ./schemas/pet.yaml
`

func TestBundleRun_Success(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"openapi.yaml":     petsAPI,
		"schemas/pet.yaml": "type: object\nproperties:\n  name:\n    type: string\n",
	})
	output := filepath.Join(dir, "dist", "openapi.json")

	var stdout, stderr bytes.Buffer
	b := &bundleRun{
		input:  filepath.Join(dir, "openapi.yaml"),
		output: output,
		format: yml.OutputFormatJSON,
		stdout: &stdout,
		stderr: &stderr,
	}

	deps, err := b.run(t.Context())
	require.NoError(t, err)
	assert.Len(t, deps, 2)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "openapi.yaml: bundle to ")
	assert.Contains(t, stderr.String(), "processed in ")

	doc := readYAML(t, output)
	components := doc["components"].(map[string]any)
	schemas := components["schemas"].(map[string]any)
	assert.Contains(t, schemas, "pet")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"), "output should be JSON")
	assert.Contains(t, string(data), `"$ref": "#/components/schemas/pet"`)
}

func TestBundleRun_Stdin_Success(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	b := &bundleRun{
		input:  stdinIndicator,
		format: yml.OutputFormatYAML,
		stdin:  strings.NewReader("openapi: 3.0.3\ninfo:\n  title: Inline\n  version: 1.0.0\npaths: {}\n"),
		stdout: &stdout,
		stderr: &stderr,
	}

	_, err := b.run(t.Context())
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "title: Inline")
	assert.Empty(t, stderr.String())
}

func TestBundleRun_Error(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"openapi.yaml": petsAPI})

	var stdout, stderr bytes.Buffer
	b := &bundleRun{
		input:  filepath.Join(dir, "openapi.yaml"),
		format: yml.OutputFormatYAML,
		opts:   bundler.Options{},
		stdout: &stdout,
		stderr: &stderr,
	}

	deps, err := b.run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported 1 error(s)")
	assert.NotEmpty(t, deps)
	assert.Contains(t, stderr.String(), "Can't resolve $ref")
	assert.NotEmpty(t, stdout.String(), "the partial bundle is still written")
}

func TestJoinFiles_Success(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"pets.yaml": petsAPI,
		"schemas/pet.yaml": "type: object\n",
		"store.yaml": `openapi: 3.1.0
info:
  title: Store
  version: 2.0.0
paths:
  /orders:
    get:
      operationId: listOrders
      tags: [orders]
      responses:
        '200':
          description: ok
`,
	})
	output := filepath.Join(dir, "out", "openapi.yaml")

	var stderr bytes.Buffer
	err := joinFiles(t.Context(), output, join.Options{
		Entrypoints: []string{filepath.Join(dir, "pets.yaml"), filepath.Join(dir, "store.yaml")},
	}, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "openapi.yaml: join processed in ")

	doc := readYAML(t, output)
	assert.Equal(t, "Pets", doc["info"].(map[string]any)["title"])

	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/pets")
	assert.Contains(t, paths, "/orders")

	groups := doc["x-tagGroups"].([]any)
	require.Len(t, groups, 2)
	assert.Equal(t, "pets", groups[0].(map[string]any)["name"])
	assert.Equal(t, "store", groups[1].(map[string]any)["name"])
}

func TestJoinFiles_Conflicts_Error(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml":           petsAPI,
		"b.yaml":           petsAPI,
		"schemas/pet.yaml": "type: object\n",
	})
	output := filepath.Join(dir, "openapi.yaml")

	var stderr bytes.Buffer
	err := joinFiles(t.Context(), output, join.Options{
		Entrypoints: []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")},
	}, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict(s)")
	assert.Contains(t, stderr.String(), "Conflict on paths => /pets : get in files: ")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "nothing is written when there are conflicts")
}
