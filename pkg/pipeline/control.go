package pipeline

import "github.com/marmos91/dittoflow/pkg/status"

// HandlerFunc is a user-supplied response handler. It receives the call's
// outcome and returns a ControlFlow value telling the handler what to do
// next: advance normally, stop the whole pipeline with a specific status, or
// repeat the operation that just completed.
//
// HandlerFunc must never block indefinitely or itself call back into the
// pipeline that invoked it; any panic it raises is not recovered here and
// will crash the calling goroutine, matching the source's treatment of
// exceptions other than StopPipeline/RepeatOperation as fatal.
type HandlerFunc func(s status.Status, response any, hosts []string) ControlFlow

// RecoveryFunc maps a failed status to a replacement operation to run in
// place of the step that failed. Returning a non-nil error is equivalent to
// the source's "recovery throws": recovery is treated as absent and the
// pipeline proceeds to its normal terminal test with the original status.
type RecoveryFunc func(s status.Status) (HandledOperation, error)

// FinalFunc is the optional callback invoked exactly once when a pipeline
// reaches a terminal state, just before its promise is fulfilled with the
// same status.
type FinalFunc func(s status.Status)

type controlKind int

const (
	ctrlContinue controlKind = iota
	ctrlStop
	ctrlRepeat
)

// ControlFlow is the value a HandlerFunc returns to tell the pipeline
// handler what to do after it runs.
type ControlFlow struct {
	kind   controlKind
	status status.Status
}

// Continue lets the pipeline advance normally: recovery (if the status is
// not OK) and then the next operation in the chain.
func Continue() ControlFlow {
	return ControlFlow{kind: ctrlContinue}
}

// Stop terminates the pipeline immediately with the given status. Any
// remaining operations in the chain are dropped without being run.
func Stop(s status.Status) ControlFlow {
	return ControlFlow{kind: ctrlStop, status: s}
}

// Repeat resubmits the operation that just completed with identical
// arguments. The chain's next operation, promise, final callback, and
// deadline are preserved across the repeat.
func Repeat() ControlFlow {
	return ControlFlow{kind: ctrlRepeat}
}
