package testutils

import (
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFS_Open(t *testing.T) {
	t.Parallel()

	m := NewMapFS(map[string]string{"/specs/openapi.yaml": "openapi: 3.0.0"})

	f, err := m.Open("/specs/../specs/openapi.yaml")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0", string(data))
	assert.Equal(t, 1, m.Opens("/specs/openapi.yaml"))

	_, err = m.Open("/specs/missing.yaml")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
