package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDestinationPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	got, err := ResolveDestinationPath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	missing := filepath.Join(dir, "new")
	got, err = ResolveDestinationPath(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)

	_, err = ResolveDestinationPath(file)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = ResolveDestinationPath(filepath.Join(dir, "a", "b"))
	assert.ErrorContains(t, err, "parent directory does not exist")

	_, err = ResolveDestinationPath(filepath.Join(file, "sub"))
	assert.Error(t, err)
}
