//go:build !linux

package justone

import "io"

func writeSegments(w io.Writer, segs [][]byte) (int, error) {
	return writeSegmentsGeneric(w, segs)
}
