package justone

import (
	"fmt"
	"strings"
)

// Default sizes and worker counts
const (
	DefaultPartialSize = 1024       // bytes hashed for the partial hash
	DefaultChunkSize   = 512 * 1024 // read size for the full hash
	DefaultHashWorkers = 4
	MaxHashWorkers     = 64
)

// Hash size constants
const (
	HashSizeSHA1   = 20
	HashSizeSHA256 = 32
	HashSizeSHA512 = 64
	HashSizeBLAKE3 = 32
	HashSizeXXHash = 8
)

// DefaultHashAlgorithm is used when neither config nor flags name one
const DefaultHashAlgorithm = "blake3"

// StrictLevel selects how much checking happens beyond full-hash equality
type StrictLevel int

const (
	StrictCommon     StrictLevel = iota // trust the full hash
	StrictShallow                       // stat signature, then bytes
	StrictByteByByte                    // bytes only
)

func (l StrictLevel) String() string {
	switch l {
	case StrictCommon:
		return "common"
	case StrictShallow:
		return "shallow"
	case StrictByteByByte:
		return "byte-by-byte"
	default:
		return fmt.Sprintf("StrictLevel(%d)", int(l))
	}
}

// Valid reports whether l is one of the defined levels
func (l StrictLevel) Valid() bool {
	return l >= StrictCommon && l <= StrictByteByByte
}

// ParseStrictLevel accepts a level name or its number ("0", "1", "2")
func ParseStrictLevel(s string) (StrictLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common", "0", "":
		return StrictCommon, nil
	case "shallow", "1":
		return StrictShallow, nil
	case "byte-by-byte", "bytebybyte", "byte", "2":
		return StrictByteByByte, nil
	default:
		return 0, fmt.Errorf("%w: %q (supported: common, shallow, byte-by-byte)", ErrInvalidStrictLevel, s)
	}
}

// Stage is a step of the duplicate-finding pipeline
type Stage int

const (
	StageIdle Stage = iota
	StageScanning
	StageSizeBucketing
	StagePartialHashing
	StageFullHashing
	StageVerifying
	StageDone
)

var stageNames = [...]string{
	StageIdle:           "idle",
	StageScanning:       "scanning",
	StageSizeBucketing:  "size-bucketing",
	StagePartialHashing: "partial-hashing",
	StageFullHashing:    "full-hashing",
	StageVerifying:      "verifying",
	StageDone:           "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Registry contexts record the furthest stage a file reached
const (
	ScannedContext = "scanned"
	PartialContext = "partial"
	FullContext    = "full"
)
