package replay

import (
	"context"
	"time"

	"github.com/marmos91/dittoflow/pkg/client"
)

func secondsToDuration(secs uint64) time.Duration {
	return time.Duration(secs) * time.Second
}

// Opener constructs a fresh client.File for a given file id. The replay
// driver owns one such file per distinct id in the trace, opened with
// SetBundledClose(true) so a recorded Close waits for queued work to drain
// (spec.md §4.3: "Each file is opened with a property directing the
// underlying client to defer Close until all in-flight work completes").
type Opener func(fileID uint64) client.File

// runFile replays one file's action stream to completion: it sleeps between
// actions to approximate the original inter-arrival gaps, submits every
// action, and then waits for the barrier protocol to confirm every callback
// (including every Close's, if present) has fired before returning.
//
// This is ExecuteActions from the source, translated from a detached
// std::thread plus two XrdSysSemaphores into a goroutine plus *barrier
// values.
func runFile(ctx context.Context, stream *FileStream, open Opener, stats *statsCollector) {
	if len(stream.Actions) == 0 {
		return
	}

	f := open(stream.FileID)
	f.SetBundledClose(true)

	total := int64(len(stream.Actions))
	closingBarriers := closeBarriersFor(stream.Actions)

	// ending carries one extra reference for the worker itself, dropped
	// only after every action has been submitted, which is what orders
	// "the worker is done" after every callback's own drop. Each entry in
	// closingBarriers has no such standing reference: it exists purely to
	// let one recorded Close, itself one step of this same loop, block
	// until every non-Close action issued since the previous Close (or the
	// start of the stream) has already dropped its reference. A file can be
	// reopened after a Close, so a later Close must not wait on actions
	// that were recorded after it and that the worker has not submitted
	// yet; closeBarriersFor gives each Close its own scoped barrier for
	// exactly that reason.
	ending := newBarrier(total + 1)

	closeIdx := 0
	prevStop := stream.Actions[0].Start
	for _, action := range stream.Actions {
		if action.Start > prevStop {
			sleepOrCancel(ctx, secondsToDuration(action.Start-prevStop))
		}
		prevStop = action.Start

		closing := closingBarriers[closeIdx]
		if action.Action == "Close" {
			closeIdx++
		}

		submitStart := time.Now()
		action.dispatch(ctx, f, stats, ending, closing)
		prevStop += uint64(time.Since(submitStart) / time.Second)
	}

	ending.drop()
	ending.wait()
}

// closeBarriersFor returns one barrier per Close action in actions, plus a
// trailing barrier for any non-Close actions recorded after the last Close
// (never waited on, since there is no further Close to wait for them).
// Barrier i is armed with the count of non-Close actions between Close i-1
// (exclusive, or the start of the stream for i==0) and Close i, so a Close
// only ever waits on actions the worker has already submitted by the time
// it reaches that Close in the sequential loop above.
func closeBarriersFor(actions []*ActionRecord) []*barrier {
	barriers := make([]*barrier, 0, len(actions))
	pending := int64(0)
	for _, a := range actions {
		if a.Action == "Close" {
			barriers = append(barriers, newBarrier(pending))
			pending = 0
		} else {
			pending++
		}
	}
	barriers = append(barriers, newBarrier(pending))
	return barriers
}

func sleepOrCancel(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
