package memory

import (
	"testing"

	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
	"github.com/stretchr/testify/require"
)

// TestCallbackCanReenterSameFile exercises every *Async method whose
// callback historically fired while f.mu was still held: a handler that
// issues a second call against the same File, from inside the first call's
// own callback and on the same goroutine, must not deadlock. This is what
// pipeline.Repeat and chained same-file operations do in practice.
func TestCallbackCanReenterSameFile(t *testing.T) {
	cases := []struct {
		name  string
		issue func(f *File, cb client.Callback)
	}{
		{"Read", func(f *File, cb client.Callback) { _ = f.ReadAsync(0, 4, 0, cb) }},
		{"PgRead", func(f *File, cb client.Callback) { _ = f.PgReadAsync(0, 4, 0, cb) }},
		{"Write", func(f *File, cb client.Callback) { _ = f.WriteAsync(0, []byte("abcd"), 0, cb) }},
		{"PgWrite", func(f *File, cb client.Callback) { _ = f.PgWriteAsync(0, []byte("abcd"), 0, cb) }},
		{"VectorRead", func(f *File, cb client.Callback) {
			_ = f.VectorReadAsync([]client.VectorReadRequest{{Offset: 0, Length: 4}}, 0, cb)
		}},
		{"VectorWrite", func(f *File, cb client.Callback) {
			_ = f.VectorWriteAsync([]client.VectorWriteRequest{{Offset: 0, Buffer: []byte("abcd")}}, 0, cb)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New()
			require.NoError(t, f.OpenAsync("srv://h/a", 0, 0, 0, func(status.Status, any, []string) {}))

			var secondStatus status.Status
			tc.issue(f, func(s status.Status, _ any, _ []string) {
				// Re-enter the same file's mutex from inside the first
				// call's own callback, on the same goroutine.
				done := make(chan struct{})
				err := f.StatAsync(false, 0, func(s2 status.Status, _ any, _ []string) {
					secondStatus = s2
					close(done)
				})
				require.NoError(t, err)
				<-done
			})

			require.True(t, secondStatus.IsOK())
		})
	}
}

// TestBundledCloseFlushesAfterLastPendingCallback checks that, with bundled
// close enabled, a Close issued once a prior call has already completed
// fires its own callback before CloseAsync returns. Every call on this
// File finishes before returning, so no call is pending when Close runs and
// the close is not queued.
func TestBundledCloseFlushesAfterLastPendingCallback(t *testing.T) {
	f := New()
	require.NoError(t, f.OpenAsync("srv://h/a", 0, 0, 0, func(status.Status, any, []string) {}))
	f.SetBundledClose(true)

	var writeDone, closeDone bool
	require.NoError(t, f.WriteAsync(0, []byte("abcd"), 0, func(status.Status, any, []string) {
		writeDone = true
	}))
	require.True(t, writeDone)

	require.NoError(t, f.CloseAsync(0, func(status.Status, any, []string) {
		closeDone = true
	}))
	require.True(t, closeDone)
}
