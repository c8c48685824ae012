package justone

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

// HashAlgorithm represents a hash algorithm configuration. NewFunc is the
// factory for the update/digest object used by the HashEngine.
type HashAlgorithm struct {
	Name    string
	Size    int // digest width in bytes
	NewFunc func() hash.Hash
}

// MinTrustedHashSize is the narrowest digest whose equality is trusted
// without StrictShallow or StrictByteByByte verification
const MinTrustedHashSize = 16

// NeedsVerification reports whether the digest is too narrow for full-hash
// equality alone to rule out collisions on large trees. xxhash is 64-bit.
func (a *HashAlgorithm) NeedsVerification() bool {
	return a.Size < MinTrustedHashSize
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			Size:    HashSizeSHA1,
			NewFunc: func() hash.Hash { return sha1.New() },
		}, nil
	case "sha256":
		return &HashAlgorithm{
			Name:    "sha256",
			Size:    HashSizeSHA256,
			NewFunc: func() hash.Hash { return sha256.New() },
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			Size:    HashSizeSHA512,
			NewFunc: func() hash.Hash { return sha512.New() },
		}, nil
	case "blake3":
		return &HashAlgorithm{
			Name:    "blake3",
			Size:    HashSizeBLAKE3,
			NewFunc: func() hash.Hash { return blake3.New(HashSizeBLAKE3, nil) },
		}, nil
	case "xxhash", "xxh64":
		return &HashAlgorithm{
			Name:    "xxhash",
			Size:    HashSizeXXHash,
			NewFunc: func() hash.Hash { return xxhash.New() },
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, name)
	}
}

// HashKind selects how much of a file a hash covers
type HashKind int

const (
	HashPartial HashKind = iota // first Size bytes
	HashFull                    // whole file, read Size bytes at a time
)

// HashMode is a HashKind plus its byte count
type HashMode struct {
	Kind HashKind
	Size int
}

// Partial hashes at most k leading bytes
func Partial(k int) HashMode { return HashMode{Kind: HashPartial, Size: k} }

// Full hashes the whole file in chunk-sized reads
func Full(chunk int) HashMode { return HashMode{Kind: HashFull, Size: chunk} }

func (m HashMode) String() string {
	if m.Kind == HashPartial {
		return "partial-hash"
	}
	return "full-hash"
}

// Hasher computes content hashes. HashEngine is the production
// implementation; tests substitute counting or colliding doubles.
type Hasher interface {
	Hash(path string, mode HashMode) ([]byte, error)
}

// HashEngine hashes file contents with a configured algorithm. It is safe
// for concurrent use.
type HashEngine struct {
	algorithm *HashAlgorithm
	chunkSize int
	buffers   sync.Pool

	bytesHashed atomic.Int64
}

// NewHashEngine creates an engine whose pooled read buffers are chunkSize bytes
func NewHashEngine(algorithm *HashAlgorithm, chunkSize int) *HashEngine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	he := &HashEngine{algorithm: algorithm, chunkSize: chunkSize}
	he.buffers.New = func() any {
		buf := make([]byte, chunkSize)
		return &buf
	}
	return he
}

// Algorithm returns the configured hash algorithm
func (he *HashEngine) Algorithm() *HashAlgorithm {
	return he.algorithm
}

// BytesHashed returns the total number of bytes fed to the hash so far
func (he *HashEngine) BytesHashed() int64 {
	return he.bytesHashed.Load()
}

// Hash computes the partial or full hash of the file at path. Failures are
// returned as *HashError; a short file under Partial is not a failure.
func (he *HashEngine) Hash(path string, mode HashMode) ([]byte, error) {
	if mode.Size <= 0 {
		return nil, &HashError{Index: -1, Path: path, Op: mode.String(), Err: fmt.Errorf("invalid read size %d", mode.Size)}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &HashError{Index: -1, Path: path, Op: mode.String(), Err: err}
	}
	defer file.Close()

	hasher := he.algorithm.NewFunc()
	var n int64
	if mode.Kind == HashPartial {
		n, err = he.hashPrefix(file, hasher, mode.Size)
	} else {
		adviseSequential(file)
		n, err = he.hashChunks(file, hasher, mode.Size)
	}
	he.bytesHashed.Add(n)
	if err != nil {
		return nil, &HashError{Index: -1, Path: path, Op: mode.String(), Err: err}
	}

	if IsDebugEnabled("hash") {
		VerboseLog(3, "%s %s: %d bytes", mode, path, n)
	}
	return hasher.Sum(nil), nil
}

// hashPrefix hashes exactly what a single read of up to k bytes returns
func (he *HashEngine) hashPrefix(r io.Reader, hasher hash.Hash, k int) (int64, error) {
	var buf []byte
	if k <= he.chunkSize {
		bufPtr := he.buffers.Get().(*[]byte)
		defer he.buffers.Put(bufPtr)
		buf = (*bufPtr)[:k]
	} else {
		buf = make([]byte, k)
	}

	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return int64(n), fmt.Errorf("read: %w", err)
	}
	hasher.Write(buf[:n])
	return int64(n), nil
}

// hashChunks reads until EOF in chunk-sized blocks
func (he *HashEngine) hashChunks(r io.Reader, hasher hash.Hash, chunk int) (int64, error) {
	var buf []byte
	if chunk == he.chunkSize {
		bufPtr := he.buffers.Get().(*[]byte)
		defer he.buffers.Put(bufPtr)
		buf = *bufPtr
	} else {
		buf = make([]byte, chunk)
	}

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read: %w", err)
		}
	}
}
