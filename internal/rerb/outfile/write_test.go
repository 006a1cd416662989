package outfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGeneratedFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "views", "todo.rb")

	changed, err := WriteGeneratedFile(out, []byte("a\n"))
	require.NoError(t, err)
	assert.True(t, changed)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(got))

	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	changed, err = WriteGeneratedFile(out, []byte("a\n"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = WriteGeneratedFile(out, []byte("b\n"))
	require.NoError(t, err)
	assert.True(t, changed)
	got, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(got))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}
