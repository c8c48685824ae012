package justone

import "time"

// ProgressReporter receives stage transitions from a Finder. total is the
// number of items the stage will process, or -1 when it is not known up
// front (enumeration). StageStarted and StageFinished come from the
// goroutine running Update or Duplicates; Advance may also be called
// concurrently from hash workers.
type ProgressReporter interface {
	StageStarted(stage Stage, total int)
	Advance(n int)
	StageFinished(stage Stage)
}

// NopProgress discards all progress events
type NopProgress struct{}

func (NopProgress) StageStarted(Stage, int) {}
func (NopProgress) Advance(int)             {}
func (NopProgress) StageFinished(Stage)     {}

// stageTracker drives the Finder's stage state machine and forwards every
// transition to the reporter while accumulating per-stage elapsed time
type stageTracker struct {
	current  Stage
	started  time.Time
	reporter ProgressReporter
	elapsed  map[Stage]time.Duration
}

func newStageTracker(reporter ProgressReporter) *stageTracker {
	if reporter == nil {
		reporter = NopProgress{}
	}
	return &stageTracker{
		current:  StageIdle,
		reporter: reporter,
		elapsed:  make(map[Stage]time.Duration),
	}
}

func (st *stageTracker) enter(stage Stage, total int) {
	st.current = stage
	st.started = time.Now()
	if IsDebugEnabled("bucket") {
		VerboseLog(3, "stage %s: %d items", stage, total)
	}
	st.reporter.StageStarted(stage, total)
}

func (st *stageTracker) advance(n int) {
	st.reporter.Advance(n)
}

func (st *stageTracker) leave() {
	st.elapsed[st.current] += time.Since(st.started)
	st.reporter.StageFinished(st.current)
}

// finish moves to StageDone unless a failure left the tracker mid-stage
func (st *stageTracker) finish() {
	st.current = StageDone
}
