// Package replay drives a recorded CSV trace of client activity against a
// live client.File implementation, reconstructing the original per-file
// timing and ordering as closely as the recorded timestamps allow.
//
// Each file mentioned in the trace gets its own worker goroutine (see
// worker.go) that replays that file's actions in recorded order, sleeping
// between actions to approximate the original inter-arrival gaps, and uses
// the two-barrier scheme in barrier.go to make sure a recorded Close is
// submitted only after every other action on the file has completed.
package replay
