package pipeline

import "github.com/marmos91/dittoflow/pkg/client"

// operation is the shared mutable core behind a chain of Operation /
// HandledOperation values: the kind, its arguments, the target file, and
// (once attached) the handler driving it. Unlike the validity token below,
// the core itself is not "consumed"; it is shared by every wrapper value
// produced as a chain is built up (an Operation and the HandledOperation
// Handle() returns for it both point at the same core, which is exactly
// what lets WithTimeout/WithRecovery mutate fields still visible after
// Handle runs).
type operation struct {
	kind     Kind
	args     any
	file     client.File
	timeout  uint16
	recovery RecoveryFunc
	handler  *handler
}

// token tracks whether a single Operation or HandledOperation value has
// already been passed to a compositional operator (Handle, Then, or Run).
// Each value produced by a constructor, or by Handle/Then/recovery, gets a
// fresh token, mirroring the source's move semantics, where moving from an
// rvalue produces a new, independently valid value at the destination.
type token struct {
	consumed bool
}

func (t *token) consume() error {
	if t == nil {
		return &CompositionError{Code: ErrEmptyArgs}
	}
	if t.consumed {
		return &CompositionError{Code: ErrConsumed}
	}
	t.consumed = true
	return nil
}

// composable is implemented by both Operation and HandledOperation so Then
// can accept either: an unhandled right-hand operand gets an empty handler
// synthesized, a handled one is spliced in as-is.
type composable interface {
	consumeOperation() (*operation, error)
}

// Operation is an unhandled operation: constructed, possibly retimed or
// given a recovery function, but not yet given a response handler. Only
// Handle, WithTimeout, WithRecovery, and Then are defined on it; Run is
// not, enforcing at compile time that unhandled operations cannot be
// submitted directly.
type Operation struct {
	op  *operation
	tok *token
}

func (o Operation) consumeOperation() (*operation, error) {
	if err := o.tok.consume(); err != nil {
		return nil, err
	}
	if o.op.handler == nil {
		o.op.handler = newHandler(nil, o.op)
		o.op.handler.recovery = o.op.recovery
	}
	return o.op, nil
}

// WithTimeout sets the operation's per-call timeout, in seconds, which is
// passed to the client.File call unchanged. A timeout of 0 is passed as 0;
// no per-call value is derived from the pipeline's deadline, which is only
// checked before each step is submitted. WithTimeout does not consume
// the operation; it may be called any number of times before the
// operation is finally composed or run.
func (o Operation) WithTimeout(timeout uint16) Operation {
	o.op.timeout = timeout
	return o
}

// WithRecovery attaches a recovery function, invoked when this operation's
// call completes with a non-OK status. WithRecovery does not consume the
// operation.
func (o Operation) WithRecovery(fn RecoveryFunc) Operation {
	o.op.recovery = fn
	return o
}

// Handle attaches a response handler, producing a HandledOperation. fn may
// be nil, in which case the operation behaves as if no user handler were
// registered (status/response are simply discarded on callback). Handle
// consumes o; using o again returns a CompositionError from whatever
// operator it is next passed to.
func (o Operation) Handle(fn HandlerFunc) (HandledOperation, error) {
	if err := o.tok.consume(); err != nil {
		return HandledOperation{}, err
	}
	o.op.handler = newHandler(fn, o.op)
	o.op.handler.recovery = o.op.recovery
	return HandledOperation{op: o.op, tok: &token{}}, nil
}

// Then composes this operation with next: next runs after this operation
// completes successfully. Since o is unhandled, an empty handler is
// synthesized first so the chain can continue; this is what makes Then
// associative regardless of which operand already has a handler attached.
func (o Operation) Then(next composable) (HandledOperation, error) {
	return join(o, next)
}

// HandledOperation owns exactly one handler. Only Then is defined on it; it
// is run by passing it to New (see pipeline.go), whose Pipeline carries the
// Run-family entry points.
type HandledOperation struct {
	op  *operation
	tok *token
}

func (h HandledOperation) consumeOperation() (*operation, error) {
	if err := h.tok.consume(); err != nil {
		return nil, err
	}
	return h.op, nil
}

// Then appends next to the deepest next-operation slot reachable through
// h's handler chain, splicing next's own chain on as a unit. This makes
// repeated Then calls associative: (A.Then(B)).Then(C) produces the same
// chain as A.Then(B.Then(C)).
func (h HandledOperation) Then(next composable) (HandledOperation, error) {
	return join(h, next)
}

func join(left, right composable) (HandledOperation, error) {
	leftCore, err := left.consumeOperation()
	if err != nil {
		return HandledOperation{}, err
	}
	rightCore, err := right.consumeOperation()
	if err != nil {
		return HandledOperation{}, err
	}

	tail := leftCore.handler
	for tail.next != nil {
		tail = tail.next.handler
	}
	tail.next = rightCore

	return HandledOperation{op: leftCore, tok: &token{}}, nil
}
