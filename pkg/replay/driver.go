package replay

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/dittoflow/pkg/replaystats"
)

// Result is what a completed replay run produces: the run's identifier (for
// correlating against the Prometheus labels emitted during the run) and the
// statistics registry it populated.
type Result struct {
	RunID string
	Stats replaystats.Store
}

// Run parses trace and replays every file's action stream concurrently, one
// worker goroutine per distinct file id, blocking until every worker has
// observed its file's terminal completion. store accumulates original vs.
// actual durations; if nil, a fresh in-memory replaystats.Registry is used.
// maxConcurrentFiles caps how many files are replayed at once; 0 means
// unbounded (one goroutine per distinct file id, started immediately).
func Run(ctx context.Context, trace io.Reader, open Opener, store replaystats.Store, maxConcurrentFiles int) (*Result, error) {
	if store == nil {
		store = replaystats.NewRegistry()
	}
	runID := uuid.NewString()
	stats := newStatsCollector(store, runID)

	streams, err := ParseTrace(trace, stats)
	if err != nil {
		return nil, err
	}

	var sem chan struct{}
	if maxConcurrentFiles > 0 {
		sem = make(chan struct{}, maxConcurrentFiles)
	}

	var wg sync.WaitGroup
	wg.Add(len(streams))
	for _, stream := range streams {
		stream := stream
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			runFile(ctx, stream, open, stats)
		}()
	}
	wg.Wait()

	return &Result{RunID: runID, Stats: store}, nil
}
