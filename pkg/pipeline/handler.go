package pipeline

import (
	"context"
	"time"

	"github.com/marmos91/dittoflow/pkg/status"
)

// handler is the single continuation every underlying call invokes on
// completion. It is a baton: at any instant exactly one of {the caller
// about to call run, the downstream client awaiting a callback, the
// callback body itself} holds it. It is never shared.
type handler struct {
	fn       HandlerFunc
	current  *operation
	next     *operation
	deadline time.Time // zero value means "no pipeline deadline"
	promise  *promise
	final    FinalFunc
	recovery RecoveryFunc
}

func newHandler(fn HandlerFunc, current *operation) *handler {
	return &handler{fn: fn, current: current}
}

// run issues the underlying asynchronous call for h.current. If the
// pipeline deadline has already passed, or submission fails synchronously,
// the response path is invoked directly without going through the user
// handler or recovery; it short-circuits straight to the terminal test.
func (h *handler) run(ctx context.Context) {
	if !h.deadline.IsZero() && !time.Now().Before(h.deadline) {
		h.forceHandle(status.New(status.Expired, 0))
		return
	}
	if err := ctx.Err(); err != nil {
		h.forceHandle(status.New(status.Cancelled, 0))
		return
	}

	cb := func(s status.Status, response any, hosts []string) {
		h.handleResponse(ctx, s, response, hosts)
	}
	if err := h.current.runImpl(ctx, cb); err != nil {
		h.forceHandle(status.New(status.IOFailure, 0))
	}
	// Success: ownership of h now belongs to the downstream client until
	// cb fires.
}

// forceHandle is ForceHandler from the source: it skips the user handler
// and recovery entirely and goes straight to the terminal test, which for
// a synthesized submission failure always terminates the pipeline.
func (h *handler) forceHandle(s status.Status) {
	if h.final != nil {
		h.final(s)
	}
	h.promise.fulfill(s)
}

// handleResponse runs the full six-step algorithm against a real callback
// from the downstream client.
func (h *handler) handleResponse(ctx context.Context, s status.Status, response any, hosts []string) {
	// Step 2: invoke the user handler, if any, and interpret Stop/Repeat.
	if h.fn != nil {
		switch cf := h.fn(s, response, hosts); cf.kind {
		case ctrlStop:
			if h.final != nil {
				h.final(cf.status)
			}
			h.promise.fulfill(cf.status)
			return
		case ctrlRepeat:
			h.current.run(ctx, h)
			return
		}
		// ctrlContinue falls through to recovery/terminal handling below.
	}
	// Step 3 (no handler registered) is implicit: response/hosts simply go
	// out of scope once this function returns; Go's GC reclaims them.

	// Step 4: recovery.
	if !s.IsOK() && h.recovery != nil {
		if recovered, err := h.recovery(s); err == nil {
			if recCore, cerr := recovered.consumeOperation(); cerr == nil {
				h.spliceRecovery(recCore)
				recCore.handler.run(ctx)
				return
			}
		}
		// Recovery threw, or its result had already been consumed:
		// treated as absent, fall through with the original status.
	}

	// Step 5: terminal test.
	if !s.IsOK() || h.next == nil {
		if h.final != nil {
			h.final(s)
		}
		h.promise.fulfill(s)
		return
	}

	// Step 6: advance to the next operation.
	next := h.next
	next.handler.deadline = h.deadline
	next.handler.promise = h.promise
	next.handler.final = h.final
	next.run(ctx, next.handler)
}

// spliceRecovery grafts h.next onto the deepest next-operation slot of
// recCore's own chain, and carries the current deadline/promise/final
// through to the recovery chain's head.
func (h *handler) spliceRecovery(recCore *operation) {
	tail := recCore.handler
	for tail.next != nil {
		tail = tail.next.handler
	}
	tail.next = h.next

	recCore.handler.deadline = h.deadline
	recCore.handler.promise = h.promise
	recCore.handler.final = h.final
}

// run transfers (deadline, promise, final) into op's handler and issues the
// underlying call. This is Op::Run from the source.
func (op *operation) run(ctx context.Context, h *handler) {
	h.current = op
	h.run(ctx)
}
