package justone

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Report formats
const (
	FormatHuman  = "human"
	FormatFdupes = "fdupes"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

var headerColor = color.New(color.FgYellow, color.Bold)

// ReportWriter streams duplicate groups to w in one of the report formats.
// Each group is written with a single vectored write when w is a file.
type ReportWriter struct {
	w      io.Writer
	format string
	groups int
	closed bool
}

// NewReportWriter creates a writer for format (human, fdupes, json, yaml)
func NewReportWriter(w io.Writer, format string) (*ReportWriter, error) {
	format = strings.ToLower(format)
	if err := ValidateOutputFormat(format); err != nil {
		return nil, err
	}
	return &ReportWriter{w: w, format: format}, nil
}

// Groups returns how many groups have been written
func (rw *ReportWriter) Groups() int {
	return rw.groups
}

// WriteGroup writes one duplicate group
func (rw *ReportWriter) WriteGroup(g DuplicateGroup) error {
	if rw.closed {
		return fmt.Errorf("report writer is closed")
	}

	var segs [][]byte
	switch rw.format {
	case FormatHuman:
		segs = append(segs, []byte(headerColor.Sprint("Duplicate found:")+"\n"))
		for _, file := range g.Files {
			segs = append(segs, []byte(" - "+file+"\n"))
		}
		segs = append(segs, []byte("\n"))
	case FormatFdupes:
		if rw.groups > 0 {
			segs = append(segs, []byte("\n"))
		}
		for _, file := range g.Files {
			segs = append(segs, []byte(file+"\n"))
		}
	case FormatJSON:
		data, err := json.MarshalIndent(g, "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode group: %w", err)
		}
		if rw.groups == 0 {
			segs = append(segs, []byte("[\n  "))
		} else {
			segs = append(segs, []byte(",\n  "))
		}
		segs = append(segs, data)
	case FormatYAML:
		data, err := yaml.Marshal([]DuplicateGroup{g})
		if err != nil {
			return fmt.Errorf("failed to encode group: %w", err)
		}
		segs = append(segs, data)
	}

	if _, err := writeSegments(rw.w, segs); err != nil {
		return fmt.Errorf("failed to write group: %w", err)
	}
	rw.groups++
	return nil
}

// Close terminates the document for formats that need it
func (rw *ReportWriter) Close() error {
	if rw.closed {
		return nil
	}
	rw.closed = true

	var tail string
	switch rw.format {
	case FormatJSON:
		if rw.groups == 0 {
			tail = "[]\n"
		} else {
			tail = "\n]\n"
		}
	case FormatYAML:
		if rw.groups == 0 {
			tail = "[]\n"
		}
	}
	if tail == "" {
		return nil
	}
	_, err := io.WriteString(rw.w, tail)
	return err
}

// WriteReport drains it into w and returns the number of groups written
func WriteReport(w io.Writer, format string, it *DuplicateIterator) (int, error) {
	defer it.Close()
	rw, err := NewReportWriter(w, format)
	if err != nil {
		return 0, err
	}
	for it.Next() {
		if err := rw.WriteGroup(it.Group()); err != nil {
			return rw.Groups(), err
		}
	}
	if err := it.Err(); err != nil {
		rw.Close()
		return rw.Groups(), err
	}
	return rw.Groups(), rw.Close()
}

// writeSegmentsGeneric writes each segment in turn
func writeSegmentsGeneric(w io.Writer, segs [][]byte) (int, error) {
	total := 0
	for _, seg := range segs {
		n, err := w.Write(seg)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// skipBytes drops the first n bytes from segs
func skipBytes(segs [][]byte, n int) [][]byte {
	for len(segs) > 0 && n >= len(segs[0]) {
		n -= len(segs[0])
		segs = segs[1:]
	}
	if len(segs) > 0 && n > 0 {
		rest := make([][]byte, len(segs))
		copy(rest, segs)
		rest[0] = rest[0][n:]
		segs = rest
	}
	return segs
}
