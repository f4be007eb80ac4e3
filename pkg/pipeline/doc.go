// Package pipeline implements the operation algebra and pipeline handler: a
// composable, typed DSL for chaining asynchronous file operations against a
// client.File, with per-operation timeouts, response handlers, recovery
// routines, and the Stop/Repeat non-local control flows.
//
// Two nominal types carry the unhandled/handled type-state the algebra
// requires: Operation (no handler yet; only Handle, WithTimeout,
// WithRecovery, and Then are defined on it) and HandledOperation (owns
// exactly one handler; only Then is defined on it, and New turns it into a
// Pipeline carrying the Run-family entry points).
// Composing or running an operation consumes it; a second attempt to
// consume the same value fails with a CompositionError, since Go has no way
// to statically forbid re-use of a value after it has been passed by value
// to a consuming method.
package pipeline
