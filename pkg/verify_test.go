package justone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, paths ...string) []FileRecord {
	t.Helper()
	recs := make([]FileRecord, len(paths))
	for i, p := range paths {
		info, err := os.Lstat(p)
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		recs[i] = FileRecord{Index: i, Path: p, Size: size}
	}
	return recs
}

func groupPaths(groups [][]FileRecord) [][]string {
	result := make([][]string, len(groups))
	for i, g := range groups {
		for _, rec := range g {
			result[i] = append(result[i], rec.Path)
		}
	}
	return result
}

func TestVerifier_CommonPassesThrough(t *testing.T) {
	v := NewVerifier(StrictCommon, 0, false)
	assert.Equal(t, StrictCommon, v.Level())

	group := []FileRecord{{Index: 0, Path: "/nowhere/a"}, {Index: 1, Path: "/nowhere/b"}}
	result, err := v.Partition(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, [][]FileRecord{group}, result)

	result, err = v.Partition(context.Background(), group[:1])
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestVerifier_ByteByByteSplitsGroups(t *testing.T) {
	root := t.TempDir()
	a1 := writeFile(t, filepath.Join(root, "a1"), "aaaaaaaaaa")
	b1 := writeFile(t, filepath.Join(root, "b1"), "bbbbbbbbbb")
	a2 := writeFile(t, filepath.Join(root, "a2"), "aaaaaaaaaa")
	c1 := writeFile(t, filepath.Join(root, "c1"), "cccccccccc")
	b2 := writeFile(t, filepath.Join(root, "b2"), "bbbbbbbbbb")

	// small chunks exercise the multi-read loop
	v := NewVerifier(StrictByteByByte, 3, false)
	result, err := v.Partition(context.Background(), records(t, a1, b1, a2, c1, b2))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{a1, a2}, {b1, b2}}, groupPaths(result))
}

func TestVerifier_DifferentSizesNeverEqual(t *testing.T) {
	root := t.TempDir()
	short := writeFile(t, filepath.Join(root, "short"), "abc")
	long := writeFile(t, filepath.Join(root, "long"), "abcd")

	v := NewVerifier(StrictByteByByte, 0, false)
	result, err := v.Partition(context.Background(), records(t, short, long))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestVerifier_ShallowSignature(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "one")
	b := writeFile(t, filepath.Join(root, "b"), "two")
	stamp := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(a, stamp, stamp))
	require.NoError(t, os.Chtimes(b, stamp, stamp))

	shallow := NewVerifier(StrictShallow, 0, false)
	result, err := shallow.Partition(context.Background(), records(t, a, b))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{a, b}}, groupPaths(result))

	require.NoError(t, os.Chtimes(b, stamp.Add(time.Second), stamp.Add(time.Second)))
	result, err = shallow.Partition(context.Background(), records(t, a, b))
	require.NoError(t, err)
	assert.Empty(t, result, "a signature mismatch falls back to reading the bytes")
}

func TestVerifier_NonRegularNeverEqual(t *testing.T) {
	root := t.TempDir()
	d1 := filepath.Join(root, "d1")
	d2 := filepath.Join(root, "d2")
	require.NoError(t, os.Mkdir(d1, 0755))
	require.NoError(t, os.Mkdir(d2, 0755))

	v := NewVerifier(StrictShallow, 0, false)
	result, err := v.Partition(context.Background(), records(t, d1, d2))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestVerifier_UnreadableHeadIsReplaced(t *testing.T) {
	skipIfRoot(t)

	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "same")
	b := writeFile(t, filepath.Join(root, "b"), "same")
	c := writeFile(t, filepath.Join(root, "c"), "same")
	recs := records(t, a, b, c)

	v := NewVerifier(StrictByteByByte, 0, true)
	// a is stat-able so it becomes the head, but cannot be opened
	require.NoError(t, os.Chmod(a, 0000))
	t.Cleanup(func() { os.Chmod(a, 0644) })

	result, err := v.Partition(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{b, c}}, groupPaths(result))
	assert.Equal(t, 1, v.Skipped())

	strict := NewVerifier(StrictByteByByte, 0, false)
	_, err = strict.Partition(context.Background(), recs)
	var hashErr *HashError
	require.True(t, errors.As(err, &hashErr))
	assert.Equal(t, a, hashErr.Path)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestVerifier_Cancelled(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "same")
	b := writeFile(t, filepath.Join(root, "b"), "same")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewVerifier(StrictByteByByte, 0, true)
	_, err := v.Partition(ctx, records(t, a, b))
	assert.ErrorIs(t, err, context.Canceled)
}
