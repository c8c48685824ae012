package justone

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, checked with errors.Is
var (
	ErrNotRegular         = errors.New("not a regular file")
	ErrNotDirectory       = errors.New("not a directory")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidStrictLevel = errors.New("invalid strict level")
	ErrUnsupportedHash    = errors.New("unsupported hash algorithm")
)

// ScanError reports a path that could not be enumerated. It is skipped
// instead of returned when IgnoreErrors is set.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "scan " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error { return e.Err }

// HashError reports a file that was enumerated but could not be read
// afterwards. Op is the hash mode, or "compare" for strict verification.
// Index is -1 when the file is not (yet) known to a registry.
type HashError struct {
	Index int
	Path  string
	Op    string
	Err   error
}

func (e *HashError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err.Error())
	}
	return fmt.Sprintf("%s file %d %s: %s", e.Op, e.Index, e.Path, e.Err.Error())
}

func (e *HashError) Unwrap() error { return e.Err }

// LookupError reports a record index that was never registered. It is a
// programming error and IgnoreErrors never suppresses it.
type LookupError struct {
	Index int
	Len   int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup file index %d (registered %d): %s", e.Index, e.Len, ErrIndexOutOfRange.Error())
}

func (e *LookupError) Unwrap() error { return ErrIndexOutOfRange }

// UpdateError carries the pipeline stage in which Update failed
type UpdateError struct {
	Stage Stage
	Err   error
}

func (e *UpdateError) Error() string {
	return "update " + e.Stage.String() + ": " + e.Err.Error()
}

func (e *UpdateError) Unwrap() error { return e.Err }

// FormatErrorChain renders an error and its causes root-first, e.g.
//
//	[no such file or directory] -> [lstat /x] -> [scan /x] -> [update scanning]
//
// Each layer shows only its own message; the text it inherited from the
// wrapped error is trimmed.
func FormatErrorChain(err error) string {
	if err == nil {
		return ""
	}

	var chain []error
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e)
	}

	parts := make([]string, len(chain))
	for i, e := range chain {
		msg := e.Error()
		if i+1 < len(chain) {
			msg = strings.TrimSuffix(msg, ": "+chain[i+1].Error())
		}
		if msg == "" {
			msg = fmt.Sprintf("%T", e)
		}
		parts[len(chain)-1-i] = "[" + msg + "]"
	}
	return strings.Join(parts, " -> ")
}

// isIgnorable reports whether IgnoreErrors may swallow err
func isIgnorable(err error) bool {
	var scanErr *ScanError
	var hashErr *HashError
	return errors.As(err, &scanErr) || errors.As(err, &hashErr)
}
