package pipeline

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
)

// runImpl issues the kind-specific asynchronous call for op against its
// target file. The context is accepted for symmetry with the rest of the
// package's signatures; it is not passed on, since client.File methods take
// no context.
func (op *operation) runImpl(ctx context.Context, cb client.Callback) error {
	switch op.kind {
	case KindNone:
		cb(status.Ok, nil, nil)
		return nil
	case KindOpen:
		a := op.args.(OpenArgs)
		return op.file.OpenAsync(a.URL, a.Flags, a.Mode, op.timeout, cb)
	case KindClose:
		return op.file.CloseAsync(op.timeout, cb)
	case KindStat:
		a := op.args.(StatArgs)
		return op.file.StatAsync(a.Force, op.timeout, cb)
	case KindRead:
		a := op.args.(ReadArgs)
		return op.file.ReadAsync(a.Offset, a.Length, op.timeout, cb)
	case KindPgRead:
		a := op.args.(ReadArgs)
		return op.file.PgReadAsync(a.Offset, a.Length, op.timeout, cb)
	case KindWrite:
		a := op.args.(WriteArgs)
		return op.file.WriteAsync(a.Offset, a.Buffer, op.timeout, cb)
	case KindPgWrite:
		a := op.args.(WriteArgs)
		return op.file.PgWriteAsync(a.Offset, a.Buffer, op.timeout, cb)
	case KindSync:
		return op.file.SyncAsync(op.timeout, cb)
	case KindTruncate:
		a := op.args.(TruncateArgs)
		return op.file.TruncateAsync(a.Size, op.timeout, cb)
	case KindVectorRead:
		a := op.args.(VectorReadArgs)
		reqs := make([]client.VectorReadRequest, len(a.Requests))
		for i, r := range a.Requests {
			reqs[i] = client.VectorReadRequest{Offset: r.Offset, Length: r.Length}
		}
		return op.file.VectorReadAsync(reqs, op.timeout, cb)
	case KindVectorWrite:
		a := op.args.(VectorWriteArgs)
		reqs := make([]client.VectorWriteRequest, len(a.Requests))
		for i, r := range a.Requests {
			reqs[i] = client.VectorWriteRequest{Offset: r.Offset, Buffer: r.Buffer}
		}
		return op.file.VectorWriteAsync(reqs, op.timeout, cb)
	default:
		return fmt.Errorf("pipeline: unknown operation kind %v", op.kind)
	}
}
