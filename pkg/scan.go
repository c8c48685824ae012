package justone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ScannedPath is a regular file found by an Enumerator
type ScannedPath struct {
	Path string // absolute, clean
	Size int64  // from lstat
}

// ScanOptions controls how an Enumerator treats problems and exclusions
type ScanOptions struct {
	IgnoreErrors bool           // skip unreadable or non-regular paths silently
	Ignore       *IgnoreManager // nil means no exclusions
}

// rootKind is what a root passed to an Enumerator must be
type rootKind int

const (
	rootAny rootKind = iota
	rootDir
	rootFile
)

type scanRoot struct {
	path string
	kind rootKind
}

// dirFrame is one directory on the walk stack with its sorted entry names
type dirFrame struct {
	dir   string
	names []string
	pos   int
}

// Enumerator lazily walks roots and yields regular files. Directories are
// walked depth-first with entries in lexical order; symbolic links are never
// followed. An Enumerator is single-use:
//
//	en := ScanDir(ctx, "/data", ScanOptions{})
//	for sp, ok := en.Next(); ok; sp, ok = en.Next() {
//		...
//	}
//	if err := en.Err(); err != nil {
//		...
//	}
type Enumerator struct {
	ctx  context.Context
	opts ScanOptions

	roots []scanRoot
	base  string // root of the current walk, for ignore matching
	stack []*dirFrame

	err     error
	yielded int
	skipped int
}

func newEnumerator(ctx context.Context, roots []scanRoot, opts ScanOptions) *Enumerator {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Enumerator{ctx: ctx, opts: opts, roots: roots}
}

// Scan enumerates root, which may be a regular file (one result) or a
// directory (walked recursively)
func Scan(ctx context.Context, root string, opts ScanOptions) *Enumerator {
	return newEnumerator(ctx, []scanRoot{{path: root, kind: rootAny}}, opts)
}

// ScanDir walks root, which must be a directory. Anything else is a
// *ScanError wrapping ErrNotDirectory.
func ScanDir(ctx context.Context, root string, opts ScanOptions) *Enumerator {
	return ScanDirs(ctx, []string{root}, opts)
}

// ScanDirs walks each of roots in order, as ScanDir does
func ScanDirs(ctx context.Context, roots []string, opts ScanOptions) *Enumerator {
	scanRoots := make([]scanRoot, len(roots))
	for i, root := range roots {
		scanRoots[i] = scanRoot{path: root, kind: rootDir}
	}
	return newEnumerator(ctx, scanRoots, opts)
}

// ScanFiles yields each of paths in order. Every path must be a regular
// file; anything else is a *ScanError wrapping ErrNotRegular.
func ScanFiles(ctx context.Context, paths []string, opts ScanOptions) *Enumerator {
	roots := make([]scanRoot, len(paths))
	for i, p := range paths {
		roots[i] = scanRoot{path: p, kind: rootFile}
	}
	return newEnumerator(ctx, roots, opts)
}

// Next returns the next regular file. It returns false when the sequence is
// exhausted or an error stopped it; check Err afterwards.
func (e *Enumerator) Next() (ScannedPath, bool) {
	for e.err == nil {
		if len(e.stack) > 0 {
			if sp, ok := e.nextInWalk(); ok {
				return sp, true
			}
			continue
		}
		if len(e.roots) == 0 {
			return ScannedPath{}, false
		}
		root := e.roots[0]
		e.roots = e.roots[1:]
		if sp, ok := e.startRoot(root); ok {
			return sp, true
		}
	}
	return ScannedPath{}, false
}

// Err returns the error that stopped the enumeration, if any
func (e *Enumerator) Err() error {
	return e.err
}

// Yielded returns how many files Next has returned
func (e *Enumerator) Yielded() int {
	return e.yielded
}

// Skipped returns how many paths were dropped because of ignored errors
func (e *Enumerator) Skipped() int {
	return e.skipped
}

// fail records err, or swallows it when errors are ignored
func (e *Enumerator) fail(err error) {
	if e.opts.IgnoreErrors && isIgnorable(err) {
		e.skipped++
		VerboseLog(1, "skipping: %v", err)
		return
	}
	e.err = err
}

func (e *Enumerator) yield(path string, size int64) (ScannedPath, bool) {
	e.yielded++
	if IsDebugEnabled("scan") {
		VerboseLog(3, "scan: found %s (%d bytes)", path, size)
	}
	return ScannedPath{Path: path, Size: size}, true
}

func (e *Enumerator) startRoot(root scanRoot) (ScannedPath, bool) {
	if err := e.ctx.Err(); err != nil {
		e.err = err
		return ScannedPath{}, false
	}

	absPath, err := filepath.Abs(root.path)
	if err != nil {
		e.fail(&ScanError{Path: root.path, Err: err})
		return ScannedPath{}, false
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		e.fail(&ScanError{Path: absPath, Err: err})
		return ScannedPath{}, false
	}

	switch {
	case info.IsDir() && root.kind != rootFile:
		e.base = absPath
		e.pushDir(absPath)
	case info.Mode().IsRegular() && root.kind != rootDir:
		return e.yield(absPath, info.Size())
	case root.kind == rootDir:
		e.fail(&ScanError{Path: absPath, Err: ErrNotDirectory})
	default:
		e.fail(&ScanError{Path: absPath, Err: ErrNotRegular})
	}
	return ScannedPath{}, false
}

// pushDir reads dir and pushes it onto the walk stack. os.ReadDir returns
// entries sorted by name.
func (e *Enumerator) pushDir(dir string) {
	if err := e.ctx.Err(); err != nil {
		e.err = err
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		e.fail(&ScanError{Path: dir, Err: fmt.Errorf("read directory: %w", err)})
		return
	}

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	e.stack = append(e.stack, &dirFrame{dir: dir, names: names})
}

func (e *Enumerator) nextInWalk() (ScannedPath, bool) {
	top := e.stack[len(e.stack)-1]
	if top.pos >= len(top.names) {
		e.stack = e.stack[:len(e.stack)-1]
		return ScannedPath{}, false
	}
	name := top.names[top.pos]
	top.pos++

	path := filepath.Join(top.dir, name)
	if e.excluded(path) {
		if IsDebugEnabled("scan") {
			VerboseLog(3, "scan: excluded %s", path)
		}
		return ScannedPath{}, false
	}

	info, err := os.Lstat(path)
	if err != nil {
		e.fail(&ScanError{Path: path, Err: err})
		return ScannedPath{}, false
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		if IsDebugEnabled("scan") {
			VerboseLog(3, "scan: not following symlink %s", path)
		}
	case mode.IsDir():
		e.pushDir(path)
	case mode.IsRegular():
		return e.yield(path, info.Size())
	default:
		e.fail(&ScanError{Path: path, Err: fmt.Errorf("%w: %s", ErrNotRegular, mode.Type())})
	}
	return ScannedPath{}, false
}

func (e *Enumerator) excluded(path string) bool {
	if !e.opts.Ignore.HasPatterns() {
		return false
	}
	rel, err := filepath.Rel(e.base, path)
	if err != nil {
		return false
	}
	return e.opts.Ignore.ShouldIgnore(rel)
}
