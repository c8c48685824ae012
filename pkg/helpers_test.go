package justone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile creates path (and its parent directories) with content
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// lockDir makes dir unreadable for the rest of the test. Tests using it
// must skip when running as root, which ignores permissions.
func lockDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.Chmod(dir, 0000))
	t.Cleanup(func() {
		os.Chmod(dir, 0755)
	})
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}

func collectScan(t *testing.T, en *Enumerator) []string {
	t.Helper()
	var paths []string
	for sp, ok := en.Next(); ok; sp, ok = en.Next() {
		paths = append(paths, sp.Path)
	}
	return paths
}
