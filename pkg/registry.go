package justone

import (
	"encoding/hex"
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// FileRecord is everything known about one registered path. PartialHash and
// FullHash are nil until computed.
type FileRecord struct {
	Index       int
	Path        string
	Size        int64
	PartialHash []byte
	FullHash    []byte
}

// FullHashString returns the full hash as hex, or "" if not computed
func (fr FileRecord) FullHashString() string {
	if fr.FullHash == nil {
		return ""
	}
	return hex.EncodeToString(fr.FullHash)
}

// pathEntry is the skiplist item; the skiplist holds a pointer to it so each
// entry is allocated on its own
type pathEntry struct {
	path  string
	index int
}

// FileRegistry owns every FileRecord. Records live in an arena addressed by
// index; a skiplist keyed by path maps back to the index and remembers the
// furthest stage (ScannedContext, PartialContext, FullContext) reached.
// Not safe for concurrent mutation.
type FileRegistry struct {
	records []FileRecord
	paths   *zcsl.ZeroCopySkiplist[pathEntry, string, string]
}

// NewFileRegistry creates an empty registry
func NewFileRegistry() *FileRegistry {
	getKeyFromItem := func(e *pathEntry) string {
		return e.path
	}
	getItemSize := func(e *pathEntry) int {
		return len(e.path)
	}
	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &FileRegistry{
		paths: zcsl.MakeZeroCopySkiplist[pathEntry, string, string](16, getKeyFromItem, getItemSize, cmpKey),
	}
}

// Add registers path and returns its index. A path that is already
// registered keeps its record and index; size is not refreshed.
func (fr *FileRegistry) Add(path string, size int64) int {
	if index, ok := fr.Lookup(path); ok {
		return index
	}

	index := len(fr.records)
	fr.records = append(fr.records, FileRecord{Index: index, Path: path, Size: size})
	fr.paths.Insert(&pathEntry{path: path, index: index}, ScannedContext)

	if IsDebugEnabled("bucket") {
		VerboseLog(3, "registry: added %s as %d (%d bytes)", path, index, size)
	}
	return index
}

// Lookup returns the index registered for path
func (fr *FileRegistry) Lookup(path string) (int, bool) {
	node, _ := fr.paths.Find(path)
	if node == nil {
		return 0, false
	}
	return node.Item().index, true
}

// Get returns a copy of the record at index
func (fr *FileRegistry) Get(index int) (FileRecord, error) {
	if index < 0 || index >= len(fr.records) {
		return FileRecord{}, &LookupError{Index: index, Len: len(fr.records)}
	}
	return fr.records[index], nil
}

// Path returns the path registered at index
func (fr *FileRegistry) Path(index int) (string, error) {
	rec, err := fr.Get(index)
	if err != nil {
		return "", err
	}
	return rec.Path, nil
}

// SetPartialHash memoises the partial hash. The first value set wins.
func (fr *FileRegistry) SetPartialHash(index int, h []byte) error {
	if index < 0 || index >= len(fr.records) {
		return &LookupError{Index: index, Len: len(fr.records)}
	}
	rec := &fr.records[index]
	if rec.PartialHash == nil {
		rec.PartialHash = h
		fr.paths.UpdateContext(rec.Path, PartialContext)
	}
	return nil
}

// SetFullHash memoises the full hash. The first value set wins.
func (fr *FileRegistry) SetFullHash(index int, h []byte) error {
	if index < 0 || index >= len(fr.records) {
		return &LookupError{Index: index, Len: len(fr.records)}
	}
	rec := &fr.records[index]
	if rec.FullHash == nil {
		rec.FullHash = h
		fr.paths.UpdateContext(rec.Path, FullContext)
	}
	return nil
}

// Len returns the number of registered records
func (fr *FileRegistry) Len() int {
	return len(fr.records)
}

// CountByContext returns how many records stopped at each stage
func (fr *FileRegistry) CountByContext() map[string]int {
	counts := make(map[string]int, 3)
	for current := fr.paths.First(); current != nil; current = current.Next() {
		counts[current.Context()]++
	}
	return counts
}
