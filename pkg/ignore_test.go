package justone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreManager_LoadPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore")
	writeFile(t, path, "# comment\n\n^\\.git$\n(^|/)node_modules$\n\\.tmp$\n")

	im := NewIgnoreManager(path)
	require.NoError(t, im.LoadIgnorePatterns())
	assert.True(t, im.HasPatterns())
	assert.Equal(t, path, im.GetIgnoreFilePath())

	cases := map[string]bool{
		".git":                  true,
		"src/.git":              false,
		"node_modules":          true,
		"web/node_modules":      true,
		"web/node_modules_old":  false,
		"build/output.tmp":      true,
		"build/output.tmp.keep": false,
	}
	for p, want := range cases {
		assert.Equal(t, want, im.ShouldIgnore(p), p)
	}
}

func TestIgnoreManager_MissingFile(t *testing.T) {
	im := NewIgnoreManager(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, im.LoadIgnorePatterns())
	assert.False(t, im.HasPatterns())
	assert.False(t, im.ShouldIgnore("anything"))
}

func TestIgnoreManager_InvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore")
	writeFile(t, path, "ok\n[unclosed\n")

	err := NewIgnoreManager(path).LoadIgnorePatterns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	assert.Error(t, NewIgnoreManager("").AddPattern("("))
}

func TestIgnoreManager_AddPattern(t *testing.T) {
	im := NewIgnoreManager("")
	assert.False(t, im.HasPatterns())

	require.NoError(t, im.AddPattern(`\.bak$`))
	assert.True(t, im.HasPatterns())
	assert.True(t, im.ShouldIgnore("dir/c.bak"))
	assert.False(t, im.ShouldIgnore("dir/b"))

	var nilManager *IgnoreManager
	assert.False(t, nilManager.ShouldIgnore("a.bak"))
	assert.False(t, nilManager.HasPatterns())
}

func TestIgnoreManager_CreateDefaultIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "ignore")
	im := NewIgnoreManager(path)
	require.NoError(t, im.CreateDefaultIgnoreFile())

	require.NoError(t, im.LoadIgnorePatterns())
	assert.False(t, im.HasPatterns(), "the default file only holds comments")

	require.NoError(t, os.WriteFile(path, []byte("keep\n"), 0644))
	require.NoError(t, im.CreateDefaultIgnoreFile())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(data), "an existing file is left alone")

	assert.Error(t, NewIgnoreManager("").CreateDefaultIgnoreFile())
}
