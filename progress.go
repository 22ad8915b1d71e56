package xlkinetics

import (
	"log/slog"
)

// ProgressEvent reports one completed unit of work. Units are one per
// extracted column of a sheet, one more per sheet for the summary, and per
// report one each for cells, number format and every gradient spec (not
// every rule the spec expands to).
type ProgressEvent struct {
	RunID    string
	Step     int    // 1-based count of completed units
	Total    int    // estimated number of units for the run
	Stage    string // "extract", "summary", or a report build stage
	Artifact string // sheet name while extracting, output file name afterwards
}

// ProgressListener receives progress events. Listeners run synchronously on
// the pipeline's goroutine; a panicking listener is recovered and logged.
type ProgressListener interface {
	OnProgress(ev ProgressEvent)
}

// ProgressFunc adapts a function to ProgressListener.
type ProgressFunc func(ev ProgressEvent)

// OnProgress calls f(ev).
func (f ProgressFunc) OnProgress(ev ProgressEvent) { f(ev) }

// ProgressChannel returns a listener that forwards events to ch without
// blocking. Events are dropped while ch is full.
func ProgressChannel(ch chan<- ProgressEvent) ProgressListener {
	return ProgressFunc(func(ev ProgressEvent) {
		select {
		case ch <- ev:
		default:
		}
	})
}

// EstimateSteps returns the a-priori step total for a run over the given
// number of sheets: sheets×12+10 for intensity, sheets×40+10 for ratio.
func EstimateSteps(mode Mode, sheets int) int {
	if mode == ModeRatio {
		return sheets*40 + 10
	}
	return sheets*12 + 10
}

// progress numbers units of work and fans events out to listeners.
type progress struct {
	runID     string
	total     int
	step      int
	listeners []ProgressListener
	logger    *slog.Logger
}

func (p *progress) tick(stage, artifact string) {
	p.step++
	ev := ProgressEvent{RunID: p.runID, Step: p.step, Total: p.total, Stage: stage, Artifact: artifact}
	for _, l := range p.listeners {
		p.notify(l, ev)
	}
}

func (p *progress) ticks(n int, stage, artifact string) {
	for range n {
		p.tick(stage, artifact)
	}
}

func (p *progress) notify(l ProgressListener, ev ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress listener panicked", slog.Any("panic", r), slog.Int("step", ev.Step))
		}
	}()
	l.OnProgress(ev)
}
