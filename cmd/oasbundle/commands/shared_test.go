package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportElapsed_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{name: "whole milliseconds", elapsed: 12 * time.Millisecond, want: "openapi.yaml: bundle processed in 12ms\n"},
		{name: "rounded up", elapsed: 12*time.Millisecond + time.Microsecond, want: "openapi.yaml: bundle processed in 13ms\n"},
		{name: "zero", elapsed: 0, want: "openapi.yaml: bundle processed in 0ms\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			reportElapsed(&buf, "openapi.yaml", "bundle", tt.elapsed)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormat_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ext    string
		output string
		input  string
		want   yml.OutputFormat
	}{
		{name: "ext wins", ext: "json", output: "out.yaml", input: "in.yaml", want: yml.OutputFormatJSON},
		{name: "ext with dot", ext: ".yml", input: "in.json", want: yml.OutputFormatYAML},
		{name: "from output", output: "dist/openapi.json", input: "in.yaml", want: yml.OutputFormatJSON},
		{name: "from input", input: "in.json", want: yml.OutputFormatJSON},
		{name: "stdin defaults to yaml", input: stdinIndicator, want: yml.OutputFormatYAML},
		{name: "unknown extension defaults to yaml", input: "openapi.txt", want: yml.OutputFormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := outputFormat(tt.ext, tt.output, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputFormat_Error(t *testing.T) {
	t.Parallel()

	_, err := outputFormat("xml", "", "openapi.yaml")
	require.Error(t, err)
}

func TestDefaultJoinOutput_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entrypoint string
		want       string
	}{
		{entrypoint: "museum.yaml", want: "openapi.yaml"},
		{entrypoint: "apis/museum.yml", want: "openapi.yml"},
		{entrypoint: "museum.JSON", want: "openapi.json"},
		{entrypoint: "museum", want: "openapi.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.entrypoint, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, defaultJoinOutput(tt.entrypoint))
		})
	}
}

func TestReportProblems_Success(t *testing.T) {
	t.Parallel()

	source := &references.Source{AbsoluteRef: "/api/openapi.yaml"}
	problems := []walk.Problem{
		{
			Message:  "Can't resolve $ref: ./missing.yaml",
			Severity: walk.SeverityError,
			RuleID:   "bundler",
			Location: references.Location{Source: source, Pointer: "#/paths/~1pets/get"},
		},
		{
			Message:  "Two schemas are referenced with the same name but different content. Renamed pet to pet-2.",
			Severity: walk.SeverityWarn,
			RuleID:   "bundler",
			Location: references.Location{Source: source, Pointer: "#/components/schemas/pet"},
		},
	}

	var buf bytes.Buffer
	errs := reportProblems(&buf, problems)
	assert.Equal(t, 1, errs)
	assert.Equal(t, `[error] bundler: Can't resolve $ref: ./missing.yaml
  at /api/openapi.yaml#/paths/~1pets/get
[warn] bundler: Two schemas are referenced with the same name but different content. Renamed pet to pet-2.
  at /api/openapi.yaml#/components/schemas/pet
1 error(s), 1 warning(s)
`, buf.String())

	buf.Reset()
	assert.Equal(t, 0, reportProblems(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestWriteOutput_Success(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	require.NoError(t, writeOutput(&stdout, "", []byte("openapi: 3.1.0\n")))
	assert.Equal(t, "openapi: 3.1.0\n", stdout.String())

	path := filepath.Join(t.TempDir(), "dist", "nested", "openapi.yaml")
	require.NoError(t, writeOutput(nil, path, []byte("openapi: 3.1.0\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.1.0\n", string(data))
}
