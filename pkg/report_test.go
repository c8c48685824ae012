package justone

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var reportGroups = []DuplicateGroup{
	{Hash: "aa", Size: 3, Files: []string{"/x/1", "/x/2"}, Count: 2},
	{Hash: "bb", Size: 5, Files: []string{"/y/1", "/y/2", "/y/3"}, Count: 3},
}

func writeGroups(t *testing.T, format string, groups []DuplicateGroup) string {
	t.Helper()
	var buf bytes.Buffer
	rw, err := NewReportWriter(&buf, format)
	require.NoError(t, err)
	for _, g := range groups {
		require.NoError(t, rw.WriteGroup(g))
	}
	require.NoError(t, rw.Close())
	assert.Equal(t, len(groups), rw.Groups())
	return buf.String()
}

func TestReportWriter_Human(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	out := writeGroups(t, FormatHuman, reportGroups)
	assert.Equal(t, "Duplicate found:\n - /x/1\n - /x/2\n\nDuplicate found:\n - /y/1\n - /y/2\n - /y/3\n\n", out)
	assert.Empty(t, writeGroups(t, FormatHuman, nil))
}

func TestReportWriter_Fdupes(t *testing.T) {
	out := writeGroups(t, "FDUPES", reportGroups)
	assert.Equal(t, "/x/1\n/x/2\n\n/y/1\n/y/2\n/y/3\n", out)
}

func TestReportWriter_JSON(t *testing.T) {
	out := writeGroups(t, FormatJSON, reportGroups)
	var decoded []DuplicateGroup
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, reportGroups, decoded)

	assert.Equal(t, "[]\n", writeGroups(t, FormatJSON, nil))
}

func TestReportWriter_YAML(t *testing.T) {
	out := writeGroups(t, FormatYAML, reportGroups)
	var decoded []DuplicateGroup
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, reportGroups, decoded)

	assert.Equal(t, "[]\n", writeGroups(t, FormatYAML, nil))
}

func TestReportWriter_Errors(t *testing.T) {
	_, err := NewReportWriter(&bytes.Buffer{}, "xml")
	assert.Error(t, err)

	rw, err := NewReportWriter(&bytes.Buffer{}, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, rw.Close())
	require.NoError(t, rw.Close())
	assert.Error(t, rw.WriteGroup(reportGroups[0]))
}

func TestReportWriter_File(t *testing.T) {
	// an *os.File takes the vectored write path where available
	path := filepath.Join(t.TempDir(), "report")
	file, err := os.Create(path)
	require.NoError(t, err)

	many := DuplicateGroup{Hash: "cc", Size: 1, Count: 3000}
	for i := 0; i < many.Count; i++ {
		many.Files = append(many.Files, "/z/"+strings.Repeat("f", i%7+1))
	}

	rw, err := NewReportWriter(file, FormatFdupes)
	require.NoError(t, err)
	require.NoError(t, rw.WriteGroup(reportGroups[0]))
	require.NoError(t, rw.WriteGroup(many))
	require.NoError(t, rw.Close())
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2+1+3000)
	assert.Equal(t, "/x/2", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "/z/f", lines[3])
	assert.Equal(t, "/z/"+strings.Repeat("f", 2999%7+1), lines[len(lines)-1])
}

func TestWriteReport(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "dup")
	b := writeFile(t, filepath.Join(root, "b"), "dup")

	f, err := New(DefaultOptions())
	require.NoError(t, err)
	update(t, f, root)

	it, err := f.Duplicates(context.Background(), StrictByteByByte)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteReport(&buf, FormatFdupes, it)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, a+"\n"+b+"\n", buf.String())
}

func TestSkipBytes(t *testing.T) {
	segs := [][]byte{[]byte("abc"), []byte("de"), []byte("fgh")}

	assert.Equal(t, segs, skipBytes(segs, 0))
	assert.Equal(t, [][]byte{[]byte("de"), []byte("fgh")}, skipBytes(segs, 3))
	assert.Equal(t, [][]byte{[]byte("e"), []byte("fgh")}, skipBytes(segs, 4))
	assert.Empty(t, skipBytes(segs, 8))
	assert.Equal(t, "abc", string(segs[0]), "the input is not modified")
}
