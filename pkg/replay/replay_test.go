package replay

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/client/memory"
	"github.com/marmos91/dittoflow/pkg/replaystats"
	"github.com/marmos91/dittoflow/pkg/status"
	"github.com/stretchr/testify/require"
)

// TestRunHonorsMaxConcurrentFiles replays several independent single-action
// files with a concurrency cap and checks that cap was never exceeded while
// each file's Open call was in flight.
func TestRunHonorsMaxConcurrentFiles(t *testing.T) {
	const fileCount = 6
	const concurrencyCap = 2

	var b strings.Builder
	for id := 1; id <= fileCount; id++ {
		b.WriteString(strings.ReplaceAll("N,Open,0,srv://h/a;0;0;0,0,\"[SUCCESS] \",\n", "N", string(rune('0'+id))))
	}

	var inFlight, maxSeen int32
	tracker := func() {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if cur <= old || atomic.CompareAndSwapInt32(&maxSeen, old, cur) {
				break
			}
		}
	}
	untrack := func() { atomic.AddInt32(&inFlight, -1) }

	open := func(uint64) client.File {
		return &slowOpenFile{File: memory.New(), onStart: tracker, onDone: untrack}
	}

	_, err := Run(context.Background(), strings.NewReader(b.String()), open, replaystats.NewRegistry(), concurrencyCap)
	require.NoError(t, err)
	require.LessOrEqual(t, int(maxSeen), concurrencyCap)
}

// slowOpenFile delays OpenAsync briefly, recording how many such calls are
// concurrently in flight, so TestRunHonorsMaxConcurrentFiles can observe the
// worker-level concurrency cap.
type slowOpenFile struct {
	*memory.File
	onStart func()
	onDone  func()
}

func (w *slowOpenFile) OpenAsync(url string, flags, mode uint32, timeout uint16, cb client.Callback) error {
	w.onStart()
	time.Sleep(10 * time.Millisecond)
	w.onDone()
	return w.File.OpenAsync(url, flags, mode, timeout, cb)
}

func TestParseTraceAccumulatesOriginalStats(t *testing.T) {
	trace := "1,Open,100,srv://h/a;0;0;10,100,\"[SUCCESS] \",\n" +
		"1,Close,101,10,101,\"[SUCCESS] \",\n"

	store := replaystats.NewRegistry()
	stats := newStatsCollector(store, "run-1")

	streams, err := ParseTrace(strings.NewReader(trace), stats)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Equal(t, uint64(1), streams[0].FileID)
	require.Len(t, streams[0].Actions, 2)

	original, _ := store.Snapshot()
	require.Equal(t, uint64(1), original["Open"].Count)
	require.Equal(t, uint64(1), original["Close"].Count)
}

func TestParseTraceRejectsMalformedLineCount(t *testing.T) {
	trace := "1,Open,100,srv://h/a;0;0;10\n"
	_, err := ParseTrace(strings.NewReader(trace), nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 1, pe.Line)
}

func TestParseTraceAcceptsSixOrSevenFields(t *testing.T) {
	sixField := "1,Sync,10,5,10,\"[SUCCESS] \"\n"
	streams, err := ParseTrace(strings.NewReader(sixField), nil)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Empty(t, streams[0].Actions[0].Response)

	sevenField := "1,Sync,10,5,10,\"[SUCCESS] \",ok\n"
	streams, err = ParseTrace(strings.NewReader(sevenField), nil)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Equal(t, "ok", streams[0].Actions[0].Response)
}

// TestCloseWaitsForEverySiblingCallback replays S5/S4: many Write actions
// followed by a Close on the same file. Close's callback must not fire until
// every Write callback already has.
func TestCloseWaitsForEverySiblingCallback(t *testing.T) {
	const n = 20
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("1,Write,0,0;4;0,0,\"[SUCCESS] \",\n")
	}
	b.WriteString("1,Close,1,0,1,\"[SUCCESS] \",\n")

	f := memory.New()
	completedWrites := 0
	var order []string
	wrap := &orderTrackingFile{File: f}
	wrap.onComplete = func(op string) {
		order = append(order, op)
		if op == "Write" {
			completedWrites++
		}
	}

	store := replaystats.NewRegistry()
	stats := newStatsCollector(store, "run-close-order")
	streams, err := ParseTrace(strings.NewReader(b.String()), stats)
	require.NoError(t, err)
	require.Len(t, streams, 1)

	runFile(context.Background(), streams[0], func(uint64) client.File { return wrap }, stats)

	require.Equal(t, n, completedWrites)
	require.Equal(t, "Close", order[len(order)-1])
}

// orderTrackingFile wraps memory.File and records, in completion order, the
// name of every operation whose callback fires, letting tests observe
// callback ordering without reaching into the pipeline internals.
type orderTrackingFile struct {
	*memory.File
	onComplete func(op string)
}

func (w *orderTrackingFile) WriteAsync(offset uint64, buffer []byte, timeout uint16, cb client.Callback) error {
	return w.File.WriteAsync(offset, buffer, timeout, func(s status.Status, response any, hosts []string) {
		w.onComplete("Write")
		cb(s, response, hosts)
	})
}

func (w *orderTrackingFile) CloseAsync(timeout uint16, cb client.Callback) error {
	return w.File.CloseAsync(timeout, func(s status.Status, response any, hosts []string) {
		w.onComplete("Close")
		cb(s, response, hosts)
	})
}

func TestInterArrivalSpacingIsApproximatelyHonored(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps in wall-clock seconds; skipped under -short")
	}

	// second Read starts 1 recorded second after the first.
	trace := "1,Read,10,0;0;0,10,\"[SUCCESS] \",\n" +
		"1,Read,11,0;0;0,11,\"[SUCCESS] \",\n"

	store := replaystats.NewRegistry()
	stats := newStatsCollector(store, "run-spacing")
	streams, err := ParseTrace(strings.NewReader(trace), stats)
	require.NoError(t, err)

	f := memory.New()
	var times []time.Time
	wrap := &timingFile{File: f, onSubmit: func() { times = append(times, time.Now()) }}

	runFile(context.Background(), streams[0], func(uint64) client.File { return wrap }, stats)

	require.Len(t, times, 2)
	gap := times[1].Sub(times[0])
	require.GreaterOrEqual(t, gap, 900*time.Millisecond)
}

type timingFile struct {
	*memory.File
	onSubmit func()
}

func (w *timingFile) ReadAsync(offset uint64, length uint32, timeout uint16, cb client.Callback) error {
	w.onSubmit()
	return w.File.ReadAsync(offset, length, timeout, cb)
}
