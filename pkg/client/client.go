// Package client specifies the contract dittoflow requires of the downstream
// asynchronous file-access client. Connection pooling, credential negotiation,
// retransmission, and wire-level framing belong to that downstream client and
// are out of scope here; this package only fixes the shape of the calls the
// pipeline engine issues against it.
package client

import "github.com/marmos91/dittoflow/pkg/status"

// Callback is invoked exactly once by the downstream client when an async
// call completes, whether it succeeded or failed.
type Callback func(s status.Status, response any, hosts []string)

// File represents a handle to a single remote file. A File is exclusively
// owned by whichever goroutine is driving it (a pipeline, a replay worker);
// the downstream client only ever calls back into the pipeline that issued
// the request.
//
// Every *Async method returns a non-nil error only when the call could not
// be submitted at all (e.g. connection pool exhaustion, malformed request).
// A submission error means the callback will never fire for that call; the
// caller must synthesize a failure status itself. Once a call has been
// accepted (nil error), the callback fires exactly once, successful or not.
type File interface {
	OpenAsync(url string, flags, mode uint32, timeout uint16, cb Callback) error
	CloseAsync(timeout uint16, cb Callback) error
	StatAsync(force bool, timeout uint16, cb Callback) error
	ReadAsync(offset uint64, length uint32, timeout uint16, cb Callback) error
	PgReadAsync(offset uint64, length uint32, timeout uint16, cb Callback) error
	WriteAsync(offset uint64, buffer []byte, timeout uint16, cb Callback) error
	PgWriteAsync(offset uint64, buffer []byte, timeout uint16, cb Callback) error
	SyncAsync(timeout uint16, cb Callback) error
	TruncateAsync(size uint64, timeout uint16, cb Callback) error
	VectorReadAsync(requests []VectorReadRequest, timeout uint16, cb Callback) error
	VectorWriteAsync(requests []VectorWriteRequest, timeout uint16, cb Callback) error

	// SetBundledClose directs the file to defer the real close until all
	// queued work against it has drained, rather than closing immediately
	// when CloseAsync is called. The replay driver relies on this so the
	// recorded Close ordering can be honored without the downstream client
	// racing ahead.
	SetBundledClose(bundled bool)
}

// VectorReadRequest is one (offset, length) pair in a VectorRead call.
type VectorReadRequest struct {
	Offset uint64
	Length uint32
}

// VectorWriteRequest is one (offset, buffer) pair in a VectorWrite call.
type VectorWriteRequest struct {
	Offset uint64
	Buffer []byte
}

// StatInfo is the success payload of a Stat operation.
type StatInfo struct {
	Size    uint64
	Mode    uint32
	ModTime int64
}

// ChunkInfo is the success payload of a Read operation.
type ChunkInfo struct {
	Offset    uint64
	BytesRead uint32
	Data      []byte
}

// PageInfo is the success payload of a PgRead operation: the bytes read plus
// a checksum per fixed-size page, computed client-side over the in-memory
// payload (not an on-disk integrity feature).
type PageInfo struct {
	Offset     uint64
	BytesRead  uint32
	Data       []byte
	Checksums  []uint32
	PageSize   uint32
}

// VectorReadInfo is the success payload of a VectorRead operation.
type VectorReadInfo struct {
	Chunks []ChunkInfo
}
