package atomicwrite

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesWithPerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "key.json")

	require.NoError(t, WriteFile(path, []byte(`{"k":"v"}`), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"k":"v"}`, string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestWriteFileReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.json")

	require.NoError(t, WriteFile(path, []byte("viejo"), 0o644))
	require.NoError(t, WriteFile(path, []byte("nuevo"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "nuevo", string(data))

	// No tiene que quedar basura temporal en el directorio.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
