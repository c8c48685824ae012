//go:build linux

package justone

import (
	"io"
	"os"
	"runtime"
	"syscall"

	"github.com/google/vectorio"
)

// maxIovecs is the kernel's UIO_MAXIOV
const maxIovecs = 1024

// writeSegments writes segs with writev when w is a file, resuming after
// short writes
func writeSegments(w io.Writer, segs [][]byte) (int, error) {
	file, ok := w.(*os.File)
	if !ok {
		return writeSegmentsGeneric(w, segs)
	}

	total := 0
	for {
		segs = dropEmpty(segs)
		if len(segs) == 0 {
			return total, nil
		}

		batch := segs
		if len(batch) > maxIovecs {
			batch = batch[:maxIovecs]
		}
		iovecs := make([]syscall.Iovec, len(batch))
		for i, seg := range batch {
			iovecs[i].Base = &seg[0]
			iovecs[i].SetLen(len(seg))
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
		runtime.KeepAlive(batch)
		if nw > 0 {
			total += nw
		}
		if err != nil {
			return total, err
		}
		if nw <= 0 {
			return total, io.ErrShortWrite
		}
		segs = skipBytes(segs, nw)
	}
}

func dropEmpty(segs [][]byte) [][]byte {
	kept := segs[:0:0]
	for _, seg := range segs {
		if len(seg) > 0 {
			kept = append(kept, seg)
		}
	}
	return kept
}
