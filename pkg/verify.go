package justone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// statSignature is what a shallow comparison trusts: file type, size and
// modification time
type statSignature struct {
	fileType fs.FileMode
	size     int64
	modTime  time.Time
}

func (s statSignature) equal(o statSignature) bool {
	return s.fileType == o.fileType && s.size == o.size && s.modTime.Equal(o.modTime)
}

// Verifier re-checks full-hash groups against file contents
type Verifier struct {
	level        StrictLevel
	chunkSize    int
	ignoreErrors bool
	skipped      int
}

// NewVerifier creates a verifier comparing chunkSize bytes at a time
func NewVerifier(level StrictLevel, chunkSize int, ignoreErrors bool) *Verifier {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Verifier{level: level, chunkSize: chunkSize, ignoreErrors: ignoreErrors}
}

// Level returns the strict level the verifier applies
func (v *Verifier) Level() StrictLevel {
	return v.level
}

// Skipped returns how many files were dropped because of ignored errors
func (v *Verifier) Skipped() int {
	return v.skipped
}

// Partition splits a group of files sharing a full hash into sub-groups of
// files that really are equal. Each file is compared with the first member
// of every existing sub-group and joins the first one it matches, or starts
// a new one. Only sub-groups of two or more files are returned. Under
// StrictCommon the group is returned as is.
func (v *Verifier) Partition(ctx context.Context, group []FileRecord) ([][]FileRecord, error) {
	if v.level == StrictCommon {
		if len(group) < 2 {
			return nil, nil
		}
		return [][]FileRecord{group}, nil
	}

	sigs := make(map[int]statSignature, len(group))
	members := make([]FileRecord, 0, len(group))
	for _, rec := range group {
		sig, err := signatureOf(rec)
		if err != nil {
			if v.skip(err) {
				continue
			}
			return nil, err
		}
		sigs[rec.Index] = sig
		members = append(members, rec)
	}

	var subgroups [][]FileRecord
next:
	for _, rec := range members {
		for i := 0; i < len(subgroups); i++ {
			head := subgroups[i][0]
			same, err := v.equal(ctx, head, sigs[head.Index], rec, sigs[rec.Index])
			if err != nil {
				if !v.skip(err) {
					return nil, err
				}
				if failedPath(err) != head.Path {
					continue next
				}
				// the head became unreadable; drop it and retry against
				// whoever is next in its sub-group
				subgroups[i] = subgroups[i][1:]
				if len(subgroups[i]) == 0 {
					subgroups = append(subgroups[:i], subgroups[i+1:]...)
				}
				i--
				continue
			}
			if same {
				subgroups[i] = append(subgroups[i], rec)
				continue next
			}
		}
		subgroups = append(subgroups, []FileRecord{rec})
	}

	result := subgroups[:0]
	for _, sub := range subgroups {
		if len(sub) >= 2 {
			result = append(result, sub)
		}
	}

	if IsDebugEnabled("verify") {
		VerboseLog(3, "verify %s: %d files -> %d groups", v.level, len(group), len(result))
	}
	return result, nil
}

func (v *Verifier) skip(err error) bool {
	if !v.ignoreErrors || !isIgnorable(err) {
		return false
	}
	v.skipped++
	VerboseLog(1, "skipping: %v", err)
	return true
}

// equal compares two files the way the level demands. Non-regular files are
// never equal. Under StrictShallow matching signatures are trusted.
func (v *Verifier) equal(ctx context.Context, a FileRecord, sigA statSignature, b FileRecord, sigB statSignature) (bool, error) {
	if !sigA.fileType.IsRegular() || !sigB.fileType.IsRegular() {
		return false, nil
	}
	if v.level == StrictShallow && sigA.equal(sigB) {
		return true, nil
	}
	if sigA.size != sigB.size {
		return false, nil
	}
	return v.compareContents(ctx, a, b)
}

// compareContents reads both files chunk by chunk until they differ or end
func (v *Verifier) compareContents(ctx context.Context, a, b FileRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fa, err := os.Open(a.Path)
	if err != nil {
		return false, compareError(a, err)
	}
	defer fa.Close()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	fb, err := os.Open(b.Path)
	if err != nil {
		return false, compareError(b, err)
	}
	defer fb.Close()

	bufA := make([]byte, v.chunkSize)
	bufB := make([]byte, v.chunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		if errA != nil && !errors.Is(errA, io.EOF) && !errors.Is(errA, io.ErrUnexpectedEOF) {
			return false, compareError(a, fmt.Errorf("read: %w", errA))
		}
		nb, errB := io.ReadFull(fb, bufB)
		if errB != nil && !errors.Is(errB, io.EOF) && !errors.Is(errB, io.ErrUnexpectedEOF) {
			return false, compareError(b, fmt.Errorf("read: %w", errB))
		}

		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA != nil || errB != nil {
			// both short reads hit EOF together since the chunks matched
			return errA != nil && errB != nil, nil
		}
	}
}

func signatureOf(rec FileRecord) (statSignature, error) {
	info, err := os.Stat(rec.Path)
	if err != nil {
		return statSignature{}, compareError(rec, err)
	}
	return statSignature{
		fileType: info.Mode().Type(),
		size:     info.Size(),
		modTime:  info.ModTime(),
	}, nil
}

func compareError(rec FileRecord, err error) error {
	return &HashError{Index: rec.Index, Path: rec.Path, Op: "compare", Err: err}
}

func failedPath(err error) string {
	var hashErr *HashError
	if errors.As(err, &hashErr) {
		return hashErr.Path
	}
	return ""
}
