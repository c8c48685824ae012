package justone

import (
	"context"
	"encoding/hex"
	"fmt"
)

// DuplicateGroup represents a group of files with the same content
type DuplicateGroup struct {
	Hash  string   `json:"hash" yaml:"hash"`
	Size  int64    `json:"size" yaml:"size"`
	Files []string `json:"files" yaml:"files"`
	Count int      `json:"count" yaml:"count"`
}

// candidateGroup is a full-hash bucket resolved to its records
type candidateGroup struct {
	hash    string
	records []FileRecord
}

// DuplicateIterator yields duplicate groups one at a time. Verification for
// StrictShallow and StrictByteByByte happens lazily as Next reaches each
// full-hash bucket. Callers that stop before Next returns false should Close
// the iterator so the verifying stage is closed out.
type DuplicateIterator struct {
	ctx      context.Context
	finder   *Finder
	verifier *Verifier

	candidates []candidateGroup
	pos        int
	pending    []DuplicateGroup
	current    DuplicateGroup

	err     error
	started bool
	done    bool
}

// Duplicates returns an iterator over the duplicate groups found so far.
// Groups come in the order their hash was first seen, or ordered by lowest
// record index when Options.Sorted is set. Each call starts afresh.
func (f *Finder) Duplicates(ctx context.Context, level StrictLevel) (*DuplicateIterator, error) {
	defer VerboseEnter()()

	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrictLevel, int(level))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	groups := f.fulls.Groups(f.opts.Sorted)
	candidates := make([]candidateGroup, 0, len(groups))
	for _, g := range groups {
		records := make([]FileRecord, len(g.Members))
		for i, index := range g.Members {
			rec, err := f.registry.Get(index)
			if err != nil {
				return nil, err
			}
			records[i] = rec
		}
		candidates = append(candidates, candidateGroup{hash: hex.EncodeToString([]byte(g.Key)), records: records})
	}

	it := &DuplicateIterator{
		ctx:        ctx,
		finder:     f,
		candidates: candidates,
	}
	if level != StrictCommon {
		it.verifier = NewVerifier(level, f.opts.ChunkSize, f.opts.IgnoreErrors)
	}
	return it, nil
}

// Next advances to the next group. It returns false at the end of the
// sequence or on error; check Err afterwards.
func (it *DuplicateIterator) Next() bool {
	if it.verifier != nil && !it.started && !it.done {
		it.started = true
		it.finder.stages.enter(StageVerifying, len(it.candidates))
	}
	for it.err == nil && !it.done {
		if len(it.pending) > 0 {
			it.current = it.pending[0]
			it.pending = it.pending[1:]
			return true
		}
		if it.pos >= len(it.candidates) {
			it.finish()
			return false
		}

		cand := it.candidates[it.pos]
		it.pos++

		if it.verifier == nil {
			it.current = newDuplicateGroup(cand.hash, cand.records)
			return true
		}

		subgroups, err := it.verifier.Partition(it.ctx, cand.records)
		it.finder.stages.advance(1)
		if err != nil {
			it.err = err
			return false
		}
		for _, sub := range subgroups {
			it.pending = append(it.pending, newDuplicateGroup(cand.hash, sub))
		}
	}
	return false
}

// Group returns the group Next moved to
func (it *DuplicateIterator) Group() DuplicateGroup {
	return it.current
}

// Err returns the error that stopped iteration, if any
func (it *DuplicateIterator) Err() error {
	return it.err
}

// Close ends iteration early. Files the verifier skipped so far are counted
// in Stats. It is safe to call more than once and after Next returned false.
func (it *DuplicateIterator) Close() error {
	if !it.done {
		it.finish()
	}
	return nil
}

// finish closes out the verifying stage once. A failed iteration leaves the
// tracker on StageVerifying so Stage reports where it stopped.
func (it *DuplicateIterator) finish() {
	it.done = true
	if !it.started {
		return
	}
	it.finder.stats.Skipped += it.verifier.Skipped()
	it.finder.stages.leave()
	if it.err == nil {
		it.finder.stages.finish()
	}
}

func newDuplicateGroup(hash string, records []FileRecord) DuplicateGroup {
	files := make([]string, len(records))
	for i, rec := range records {
		files[i] = rec.Path
	}
	var size int64
	if len(records) > 0 {
		size = records[0].Size
	}
	return DuplicateGroup{
		Hash:  hash,
		Size:  size,
		Files: files,
		Count: len(files),
	}
}

// CollectDuplicates drains it into a slice
func CollectDuplicates(it *DuplicateIterator) ([]DuplicateGroup, error) {
	defer it.Close()
	var result []DuplicateGroup
	for it.Next() {
		result = append(result, it.Group())
	}
	if err := it.Err(); err != nil {
		return result, err
	}
	return result, nil
}
