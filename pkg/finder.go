package justone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Options configures a Finder. Zero sizes and worker counts select the
// defaults.
type Options struct {
	Algorithm    string // hash algorithm name, see GetHashAlgorithm
	PartialSize  int    // bytes covered by the partial hash
	ChunkSize    int    // read size for the full hash and byte comparison
	IgnoreErrors bool   // drop unreadable files instead of failing
	HashWorkers  int    // concurrent hashes per stage
	Sorted       bool   // report groups ordered by lowest record index

	Ignore   *IgnoreManager   // exclusions applied while walking directories
	Progress ProgressReporter // stage events, nil for none
	Hasher   Hasher           // replaces the HashEngine built from Algorithm
}

// DefaultOptions returns the built-in defaults
func DefaultOptions() Options {
	return Options{
		Algorithm:   DefaultHashAlgorithm,
		PartialSize: DefaultPartialSize,
		ChunkSize:   DefaultChunkSize,
		HashWorkers: DefaultHashWorkers,
	}
}

// OptionsFromConfig builds Options from a loaded configuration, including
// the ignore file kept next to it
func OptionsFromConfig(cfg *Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid configuration %s: %w", cfg.Path(), err)
	}

	all := cfg.GetAllConfig()
	opts := DefaultOptions()
	opts.Algorithm = all.Hash.Default
	opts.PartialSize = all.Scan.PartialSize
	opts.ChunkSize = all.Scan.ChunkSize
	opts.IgnoreErrors = all.Scan.IgnoreErrors
	opts.HashWorkers = all.Performance.HashWorkers
	opts.Sorted = all.Output.Sorted

	ignore := NewIgnoreManager(cfg.IgnoreFilePath())
	if err := ignore.LoadIgnorePatterns(); err != nil {
		return Options{}, fmt.Errorf("failed to load ignore patterns: %w", err)
	}
	opts.Ignore = ignore
	return opts, nil
}

// Stats summarises the work a Finder has done across all Update calls
type Stats struct {
	Updates         int
	FilesRegistered int
	PartialHashes   int // partial hashes computed, not counting memoised ones
	FullHashes      int
	BytesHashed     int64 // 0 when a custom Hasher is used
	Skipped         int   // paths and files dropped under IgnoreErrors
	DuplicateGroups int   // full-hash buckets with two or more members
	Elapsed         map[Stage]time.Duration
	Reached         map[string]int // files by furthest stage: ScannedContext, PartialContext, FullContext
}

// Total returns the summed elapsed time of all stages
func (s Stats) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Elapsed {
		total += d
	}
	return total
}

// Finder is a duplicate-finding session. Files and hashes accumulate across
// Update calls, so feeding the same tree twice costs nothing and feeding two
// trees one after the other finds duplicates across them.
// A Finder is not safe for concurrent use.
type Finder struct {
	opts   Options
	hasher Hasher
	engine *HashEngine // nil when opts.Hasher is set

	registry *FileRegistry
	sizes    *BucketIndex[int64]
	partials *BucketIndex[partialKey]
	fulls    *BucketIndex[string]

	// promoted but not yet merged, carried over when an Update fails
	pendingPartial []int
	pendingFull    []int
	// candidates whose hash failed in an earlier Update; a second failure
	// drops them instead of failing the call again
	failedBefore map[int]struct{}

	stages *stageTracker
	stats  Stats
}

// New creates a Finder
func New(opts Options) (*Finder, error) {
	defaults := DefaultOptions()
	if opts.Algorithm == "" {
		opts.Algorithm = defaults.Algorithm
	}
	if opts.PartialSize == 0 {
		opts.PartialSize = defaults.PartialSize
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	if opts.HashWorkers == 0 {
		opts.HashWorkers = defaults.HashWorkers
	}
	if opts.PartialSize < 0 || opts.ChunkSize < 0 {
		return nil, fmt.Errorf("invalid sizes: partial %d, chunk %d", opts.PartialSize, opts.ChunkSize)
	}
	if err := ValidateHashWorkers(opts.HashWorkers); err != nil {
		return nil, err
	}

	f := &Finder{
		opts:     opts,
		hasher:   opts.Hasher,
		registry: NewFileRegistry(),
		sizes:    NewBucketIndex[int64]("size"),
		partials: NewBucketIndex[partialKey]("partial-hash"),
		fulls:    NewBucketIndex[string]("full-hash"),
		stages:   newStageTracker(opts.Progress),

		failedBefore: make(map[int]struct{}),
	}
	if f.hasher == nil {
		algorithm, err := GetHashAlgorithm(opts.Algorithm)
		if err != nil {
			return nil, err
		}
		f.engine = NewHashEngine(algorithm, opts.ChunkSize)
		f.hasher = f.engine
	}

	VerboseLog(2, "finder: hash=%s partial=%d chunk=%d workers=%d ignore-errors=%t",
		opts.Algorithm, opts.PartialSize, opts.ChunkSize, opts.HashWorkers, opts.IgnoreErrors)
	return f, nil
}

// Registry returns the registry of every file seen so far
func (f *Finder) Registry() *FileRegistry {
	return f.registry
}

// Stage returns the pipeline stage the Finder is in. After a failed Update
// it is the stage that failed.
func (f *Finder) Stage() Stage {
	return f.stages.current
}

// Stats returns a snapshot of the work done so far
func (f *Finder) Stats() Stats {
	s := f.stats
	s.FilesRegistered = f.registry.Len()
	if f.engine != nil {
		s.BytesHashed = f.engine.BytesHashed()
	}
	s.DuplicateGroups = len(f.fulls.Groups(false))
	s.Reached = f.registry.CountByContext()
	s.Elapsed = make(map[Stage]time.Duration, len(f.stages.elapsed))
	for stage, d := range f.stages.elapsed {
		s.Elapsed[stage] = d
	}
	return s
}

// Update adds paths to the session and runs them through the pipeline.
//
// The kind of the first path decides how the whole call is treated: if it
// is a directory every path is walked as a directory (a non-directory is a
// *ScanError wrapping ErrNotDirectory), otherwise every path must be a
// regular file (anything else wraps ErrNotRegular). Mixing files and
// directories in one call is therefore not supported; make two calls.
// Symbolic links are not followed, including for the first path.
//
// Calling Update with no paths is a no-op. Paths already registered are not
// hashed again. Failures are returned as *UpdateError naming the stage.
func (f *Finder) Update(ctx context.Context, paths ...string) (*Finder, error) {
	defer VerboseEnter()()

	if len(paths) == 0 {
		return f, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	f.stats.Updates++

	scanOpts := ScanOptions{IgnoreErrors: f.opts.IgnoreErrors, Ignore: f.opts.Ignore}
	var en *Enumerator
	if info, err := os.Lstat(paths[0]); err == nil && info.IsDir() {
		VerboseLog(2, "update: directory mode, %d roots", len(paths))
		en = ScanDirs(ctx, paths, scanOpts)
	} else {
		VerboseLog(2, "update: file mode, %d files", len(paths))
		en = ScanFiles(ctx, paths, scanOpts)
	}

	if err := f.run(ctx, en); err != nil {
		return f, err
	}
	f.stages.finish()
	return f, nil
}

// run drives one batch through scanning, size bucketing, partial hashing and
// full hashing
func (f *Finder) run(ctx context.Context, en *Enumerator) error {
	// Scanning
	f.stages.enter(StageScanning, -1)
	sizeBatch := NewBatch[int64]()
	for sp, ok := en.Next(); ok; sp, ok = en.Next() {
		index := f.registry.Add(sp.Path, sp.Size)
		rec, err := f.registry.Get(index)
		if err != nil {
			return &UpdateError{Stage: StageScanning, Err: err}
		}
		sizeBatch.Add(rec.Size, index)
		f.stages.advance(1)
	}
	f.stats.Skipped += en.Skipped()
	if err := en.Err(); err != nil {
		return &UpdateError{Stage: StageScanning, Err: err}
	}
	f.stages.leave()

	// Size bucketing
	f.stages.enter(StageSizeBucketing, sizeBatch.Len())
	promoted := f.sizes.Merge(sizeBatch)
	f.stages.advance(sizeBatch.Len())
	f.stages.leave()
	VerboseLog(1, "update: %d files scanned, %d share a size with another file", en.Yielded(), len(promoted))

	// Partial hashing
	candidates := appendUnique(f.pendingPartial, promoted)
	f.pendingPartial = candidates
	f.stages.enter(StagePartialHashing, len(candidates))
	partialBatch, retry, err := f.partialStage(ctx, candidates)
	if err != nil {
		f.pendingPartial = retry
		return &UpdateError{Stage: StagePartialHashing, Err: err}
	}
	f.pendingPartial = nil
	promoted = f.partials.Merge(partialBatch)
	f.stages.leave()
	VerboseLog(1, "update: %d files share a partial hash with another file", len(promoted))

	// Full hashing
	candidates = appendUnique(f.pendingFull, promoted)
	f.pendingFull = candidates
	f.stages.enter(StageFullHashing, len(candidates))
	fullBatch, retry, err := f.fullStage(ctx, candidates)
	if err != nil {
		f.pendingFull = retry
		return &UpdateError{Stage: StageFullHashing, Err: err}
	}
	f.pendingFull = nil
	promoted = f.fulls.Merge(fullBatch)
	f.stages.leave()
	VerboseLog(1, "update: %d new duplicate candidates", len(promoted))

	reached := f.registry.CountByContext()
	VerboseLog(2, "update: %d files scanned only, %d partially hashed, %d fully hashed",
		reached[ScannedContext], reached[PartialContext], reached[FullContext])
	return nil
}

func (f *Finder) partialStage(ctx context.Context, candidates []int) (*Batch[partialKey], []int, error) {
	results, err := f.hashStage(ctx, candidates, Partial(f.opts.PartialSize))
	if err != nil {
		return nil, candidates, err
	}

	batch := NewBatch[partialKey]()
	retry, err := f.applyResults(candidates, results, HashPartial, func(index int, r hashResult) {
		batch.Add(partialKey{Size: r.size, Hash: string(r.hash)}, index)
	})
	return batch, retry, err
}

func (f *Finder) fullStage(ctx context.Context, candidates []int) (*Batch[string], []int, error) {
	results, err := f.hashStage(ctx, candidates, Full(f.opts.ChunkSize))
	if err != nil {
		return nil, candidates, err
	}

	batch := NewBatch[string]()
	retry, err := f.applyResults(candidates, results, HashFull, func(index int, r hashResult) {
		batch.Add(string(r.hash), index)
	})
	return batch, retry, err
}

// applyResults memoises every successful hash, even when another candidate
// failed, and hands it to add. It returns the first error that fails the
// stage together with the candidates to retry on the next Update. A file
// dropped under IgnoreErrors, or failing again after failing in an earlier
// Update, is left out of the retry list.
func (f *Finder) applyResults(candidates []int, results []hashResult, kind HashKind, add func(int, hashResult)) ([]int, error) {
	var firstErr error
	retry := make([]int, 0, len(candidates))

	for i, index := range candidates {
		r := results[i]
		if r.err != nil {
			_, failedBefore := f.failedBefore[index]
			switch {
			case f.opts.IgnoreErrors && isIgnorable(r.err):
				VerboseLog(1, "skipping: %v", r.err)
			case failedBefore && isIgnorable(r.err):
				Logger().Warn().Err(r.err).Msg("dropping file that failed in an earlier update")
			default:
				f.failedBefore[index] = struct{}{}
				retry = append(retry, index)
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			delete(f.failedBefore, index)
			f.stats.Skipped++
			continue
		}

		delete(f.failedBefore, index)
		retry = append(retry, index)
		if !r.cached {
			if err := f.memoise(index, r.hash, kind); err != nil {
				return candidates, err
			}
		}
		add(index, r)
	}
	return retry, firstErr
}

func (f *Finder) memoise(index int, h []byte, kind HashKind) error {
	if kind == HashPartial {
		if err := f.registry.SetPartialHash(index, h); err != nil {
			return err
		}
		f.stats.PartialHashes++
		return nil
	}
	if err := f.registry.SetFullHash(index, h); err != nil {
		return err
	}
	f.stats.FullHashes++
	return nil
}

// hashResult is one worker's output slot
type hashResult struct {
	size   int64
	hash   []byte
	cached bool
	err    error
}

// hashStage hashes every candidate that has no memoised hash for mode.
// Workers only fill their own result slot; the caller applies results in
// candidate order.
func (f *Finder) hashStage(ctx context.Context, candidates []int, mode HashMode) ([]hashResult, error) {
	results := make([]hashResult, len(candidates))
	records := make([]FileRecord, len(candidates))
	for i, index := range candidates {
		rec, err := f.registry.Get(index)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	p := pool.New().WithMaxGoroutines(f.opts.HashWorkers).WithContext(ctx)
	for i := range records {
		rec := records[i]
		results[i].size = rec.Size

		memo := rec.PartialHash
		if mode.Kind == HashFull {
			memo = rec.FullHash
		}
		if memo != nil {
			results[i].hash = memo
			results[i].cached = true
			f.stages.advance(1)
			continue
		}

		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := f.hasher.Hash(rec.Path, mode)
			if err != nil {
				results[i].err = indexHashError(err, rec, mode)
			} else {
				results[i].hash = h
			}
			f.stages.advance(1)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// indexHashError attaches the record index to a hash failure, wrapping
// errors from custom Hashers into *HashError
func indexHashError(err error, rec FileRecord, mode HashMode) error {
	var hashErr *HashError
	if errors.As(err, &hashErr) {
		if hashErr.Index < 0 {
			withIndex := *hashErr
			withIndex.Index = rec.Index
			return &withIndex
		}
		return err
	}
	return &HashError{Index: rec.Index, Path: rec.Path, Op: mode.String(), Err: err}
}

// appendUnique appends the members of add missing from base
func appendUnique(base, add []int) []int {
	if len(base) == 0 {
		return add
	}
	seen := make(map[int]struct{}, len(base)+len(add))
	for _, index := range base {
		seen[index] = struct{}{}
	}
	result := append([]int(nil), base...)
	for _, index := range add {
		if _, ok := seen[index]; ok {
			continue
		}
		seen[index] = struct{}{}
		result = append(result, index)
	}
	return result
}
