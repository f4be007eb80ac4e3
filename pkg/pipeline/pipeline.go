package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittoflow/pkg/status"
)

// promise is a single-shot future producing a final Status. It is
// fulfilled exactly once; subsequent fulfillments are no-ops.
type promise struct {
	once sync.Once
	done chan struct{}
	result status.Status
}

func newPromise() *promise {
	return &promise{done: make(chan struct{})}
}

func (p *promise) fulfill(s status.Status) {
	p.once.Do(func() {
		p.result = s
		close(p.done)
	})
}

func (p *promise) wait(ctx context.Context) status.Status {
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		return status.New(status.Cancelled, 0)
	}
}

// Future is the awaitable handle returned by Pipeline.Run. It resolves
// exactly once, with the same status the pipeline's final callback (if one
// was set) was invoked with.
type Future struct {
	p *promise
}

// Wait blocks until the pipeline resolves or ctx is cancelled, whichever
// comes first.
func (f *Future) Wait(ctx context.Context) status.Status {
	return f.p.wait(ctx)
}

// Pipeline is a move-only holder for the head of a handled operation chain
// plus its eventual result. It becomes invalid after Run; a second call to
// Run fails deterministically with a CompositionError.
type Pipeline struct {
	head *operation
}

// New builds a Pipeline from a fully composed HandledOperation, consuming
// it.
func New(h HandledOperation) (*Pipeline, error) {
	core, err := h.consumeOperation()
	if err != nil {
		return nil, err
	}
	return &Pipeline{head: core}, nil
}

// Run starts the pipeline and returns immediately with a Future for its
// result (this is Async from the source). timeout is the pipeline-wide
// deadline; zero means no deadline is applied. final, if non-nil, is
// invoked exactly once when the pipeline reaches a terminal state, with the
// same status the returned Future resolves to.
func (pl *Pipeline) Run(ctx context.Context, timeout time.Duration, final FinalFunc) (*Future, error) {
	if pl.head == nil {
		return nil, &CompositionError{Code: ErrConsumed}
	}
	head := pl.head
	pl.head = nil

	pr := newPromise()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	h := head.handler
	h.deadline = deadline
	h.promise = pr
	h.final = final

	head.run(ctx, h)

	return &Future{p: pr}, nil
}

// WaitFor runs the pipeline and blocks until it resolves (this is WaitFor
// from the source: Async followed by an immediate wait).
func (pl *Pipeline) WaitFor(ctx context.Context, timeout time.Duration, final FinalFunc) (status.Status, error) {
	f, err := pl.Run(ctx, timeout, final)
	if err != nil {
		return status.Status{}, err
	}
	return f.Wait(ctx), nil
}
