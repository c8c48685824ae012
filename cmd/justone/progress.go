package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	justone "github.com/mattkeenan/justone/pkg"
)

// barProgress shows one progress bar per pipeline stage
type barProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newBarProgress(w io.Writer) *barProgress {
	return &barProgress{w: w}
}

var stageLabels = map[justone.Stage]string{
	justone.StageScanning:       "Scanning files",
	justone.StageSizeBucketing:  "Grouping by size",
	justone.StagePartialHashing: "Hashing file heads",
	justone.StageFullHashing:    "Hashing full files",
	justone.StageVerifying:      "Verifying groups",
}

func (p *barProgress) StageStarted(stage justone.Stage, total int) {
	if total == 0 {
		return
	}
	label, ok := stageLabels[stage]
	if !ok {
		label = stage.String()
	}

	p.bar = progressbar.NewOptions64(int64(total),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
	)
}

// Advance is called from hash workers; ProgressBar.Add is safe for that
func (p *barProgress) Advance(n int) {
	if p.bar == nil {
		return
	}
	p.bar.Add(n)
}

func (p *barProgress) StageFinished(stage justone.Stage) {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}
