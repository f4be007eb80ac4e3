package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/client/memory"
	"github.com/marmos91/dittoflow/pkg/status"
	"github.com/stretchr/testify/require"
)

func TestEmptyPipelineResolvesOKImmediately(t *testing.T) {
	h, err := Empty().Handle(nil)
	require.NoError(t, err)
	pl, err := New(h)
	require.NoError(t, err)

	s, err := pl.WaitFor(context.Background(), 0, nil)
	require.NoError(t, err)
	require.True(t, s.IsOK())
}

func TestZeroLengthReadCompletesOK(t *testing.T) {
	f := memory.New()
	var got client.ChunkInfo
	h, err := Read(f, 0, 0, 0).Handle(func(s status.Status, resp any, hosts []string) ControlFlow {
		got = resp.(client.ChunkInfo)
		return Continue()
	})
	require.NoError(t, err)
	pl, err := New(h)
	require.NoError(t, err)

	s, err := pl.WaitFor(context.Background(), 0, nil)
	require.NoError(t, err)
	require.True(t, s.IsOK())
	require.Equal(t, uint32(0), got.BytesRead)
}

func TestStopSuppressesRemainingOperations(t *testing.T) {
	f := memory.New()
	writeCalled := false
	closeCalled := false

	write, err := Write(f, 0, []byte("x"), 0).Handle(func(status.Status, any, []string) ControlFlow {
		writeCalled = true
		return Continue()
	})
	require.NoError(t, err)
	closeOp, err := Close(f, 0).Handle(func(status.Status, any, []string) ControlFlow {
		closeCalled = true
		return Continue()
	})
	require.NoError(t, err)

	read, err := Read(f, 0, 0, 0).Handle(func(status.Status, any, []string) ControlFlow {
		return Stop(status.Ok)
	})
	require.NoError(t, err)

	chain, err := read.Then(write)
	require.NoError(t, err)
	chain, err = chain.Then(closeOp)
	require.NoError(t, err)

	pl, err := New(chain)
	require.NoError(t, err)
	s, err := pl.WaitFor(context.Background(), 0, nil)
	require.NoError(t, err)
	require.True(t, s.IsOK())
	require.False(t, writeCalled)
	require.False(t, closeCalled)
}

func TestRepeatResubmitsSameOperation(t *testing.T) {
	f := memory.New()
	calls := 0

	h, err := Read(f, 0, 0, 0).Handle(func(status.Status, any, []string) ControlFlow {
		calls++
		if calls == 1 {
			return Repeat()
		}
		return Continue()
	})
	require.NoError(t, err)
	pl, err := New(h)
	require.NoError(t, err)

	fulfillments := 0
	s, err := pl.WaitFor(context.Background(), 0, func(status.Status) { fulfillments++ })
	require.NoError(t, err)
	require.True(t, s.IsOK())
	require.Equal(t, 2, calls)
	require.Equal(t, 1, fulfillments)
}

func TestRecoverySplicesCorrectly(t *testing.T) {
	bad := memory.New()
	bad.Fail = func(op string) (status.Status, bool) {
		if op == "Open" {
			return status.New(status.IOFailure, 1), true
		}
		return status.Ok, false
	}
	good := memory.New()

	var order []string
	record := func(name string) HandlerFunc {
		return func(status.Status, any, []string) ControlFlow {
			order = append(order, name)
			return Continue()
		}
	}

	openBad := Open(bad, "srv://bad", 0, 0, 0).WithRecovery(func(status.Status) (HandledOperation, error) {
		openGood, err := Open(good, "srv://good", 0, 0, 0).Handle(record("A"))
		if err != nil {
			return HandledOperation{}, err
		}
		readGood, err := Read(good, 0, 0, 0).Handle(record("B"))
		if err != nil {
			return HandledOperation{}, err
		}
		return openGood.Then(readGood)
	})
	a, err := openBad.Handle(record("open-bad"))
	require.NoError(t, err)

	cOp, err := Stat(good, false, 0).Handle(record("C"))
	require.NoError(t, err)
	dOp, err := Close(good, 0).Handle(record("D"))
	require.NoError(t, err)

	chain, err := a.Then(cOp)
	require.NoError(t, err)
	chain, err = chain.Then(dOp)
	require.NoError(t, err)

	pl, err := New(chain)
	require.NoError(t, err)
	s, err := pl.WaitFor(context.Background(), 0, nil)
	require.NoError(t, err)
	require.True(t, s.IsOK())
	require.Equal(t, []string{"open-bad", "A", "B", "C", "D"}, order)
}

func TestDoubleConsumptionFailsFast(t *testing.T) {
	f := memory.New()
	op := Read(f, 0, 0, 0)
	_, err := op.Handle(nil)
	require.NoError(t, err)

	_, err = op.Handle(nil)
	require.Error(t, err)
	var ce *CompositionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrConsumed, ce.Code)
}

func TestRunningPipelineTwiceFails(t *testing.T) {
	f := memory.New()
	h, err := Close(f, 0).Handle(nil)
	require.NoError(t, err)
	pl, err := New(h)
	require.NoError(t, err)

	_, err = pl.Run(context.Background(), 0, nil)
	require.NoError(t, err)

	_, err = pl.Run(context.Background(), 0, nil)
	require.Error(t, err)
}

func TestExpiredDeadlineTerminatesWithoutRunning(t *testing.T) {
	f := memory.New()
	called := false
	h, err := Read(f, 0, 0, 0).Handle(func(status.Status, any, []string) ControlFlow {
		called = true
		return Continue()
	})
	require.NoError(t, err)
	pl, err := New(h)
	require.NoError(t, err)

	s, err := pl.WaitFor(context.Background(), time.Nanosecond, nil)
	require.NoError(t, err)
	require.Equal(t, status.Expired, s.Kind)
	require.False(t, called)
}
