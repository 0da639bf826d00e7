package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImportPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "web.ndjson"), []byte("{}\n"), 0644))

	outside := filepath.Join(t.TempDir(), "secret.log")
	require.NoError(t, os.WriteFile(outside, []byte("secret\n"), 0644))

	t.Run("relative", func(t *testing.T) {
		got, err := ResolveImportPath(dir, "app/web.ndjson")
		require.NoError(t, err)
		assert.Equal(t, "web.ndjson", filepath.Base(got))
		assert.FileExists(t, got)
	})

	t.Run("absolute inside", func(t *testing.T) {
		got, err := ResolveImportPath(dir, filepath.Join(dir, "app", "web.ndjson"))
		require.NoError(t, err)
		assert.FileExists(t, got)
	})

	rejected := map[string]string{
		"parent traversal": "../" + filepath.Base(filepath.Dir(outside)) + "/secret.log",
		"nested traversal": "app/../../etc/passwd",
		"absolute outside": outside,
		"system file":      "/etc/passwd",
		"empty":            "",
		"directory itself": ".",
	}
	for name, path := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveImportPath(dir, path)
			assert.Error(t, err)
		})
	}

	t.Run("symlink escaping the directory", func(t *testing.T) {
		link := filepath.Join(dir, "link.log")
		if err := os.Symlink(outside, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		_, err := ResolveImportPath(dir, "link.log")
		assert.ErrorIs(t, err, ErrOutsideImportDir)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ResolveImportPath(dir, "app/nope.log")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("no import directory", func(t *testing.T) {
		_, err := ResolveImportPath("", "app/web.ndjson")
		assert.ErrorIs(t, err, ErrOutsideImportDir)
	})
}
