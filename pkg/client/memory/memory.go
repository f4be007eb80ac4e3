// Package memory provides an in-memory implementation of client.File, used
// as a fast, dependency-free stand-in for a real remote file when exercising
// pipelines and replays in tests.
//
// Every *Async call completes synchronously, on the caller's own goroutine,
// before the *Async method returns; there is no background callback pool
// to simulate. A local store has nothing to be asynchronous about, but the
// client.File contract (and the pipeline built on it) still goes through the
// motions, which is exactly what makes it useful for tests of the pipeline
// and replay machinery themselves.
package memory

import (
	"hash/crc32"
	"sync"

	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
)

const defaultPageSize = 4096

// File is an in-memory client.File backed by a single growable byte slice.
type File struct {
	mu            sync.Mutex
	url           string
	data          []byte
	opened        bool
	bundledClose  bool
	pending       int
	closeQueued   bool
	closeCallback client.Callback
	pageSize      int

	// Fail, when non-nil, is consulted by every *Async method before it
	// touches data; returning a non-OK status simulates a downstream
	// failure without needing a real server.
	Fail func(op string) (status.Status, bool)
}

// New creates an unopened in-memory file. url is recorded but otherwise
// unused; it exists so OpenAsync has something to validate.
func New() *File {
	return &File{pageSize: defaultPageSize}
}

func (f *File) fail(op string) (status.Status, bool) {
	if f.Fail == nil {
		return status.Ok, false
	}
	return f.Fail(op)
}

func (f *File) OpenAsync(url string, flags, mode uint32, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if s, failed := f.fail("Open"); failed {
		f.mu.Unlock()
		cb(s, nil, nil)
		return nil
	}
	if url == "" {
		f.mu.Unlock()
		cb(status.New(status.IOFailure, 1), nil, nil)
		return nil
	}
	f.url = url
	f.opened = true
	f.mu.Unlock()
	cb(status.Ok, nil, nil)
	return nil
}

// SetBundledClose implements client.File.
func (f *File) SetBundledClose(bundled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundledClose = bundled
}

func (f *File) CloseAsync(timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if s, failed := f.fail("Close"); failed {
		f.mu.Unlock()
		cb(s, nil, nil)
		return nil
	}
	if f.bundledClose && f.pending > 0 {
		f.closeQueued = true
		f.closeCallback = cb
		f.mu.Unlock()
		return nil
	}
	f.opened = false
	f.mu.Unlock()
	cb(status.Ok, nil, nil)
	return nil
}

func (f *File) StatAsync(force bool, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if s, failed := f.fail("Stat"); failed {
		f.mu.Unlock()
		cb(s, nil, nil)
		return nil
	}
	info := client.StatInfo{Size: uint64(len(f.data))}
	f.mu.Unlock()
	cb(status.Ok, info, nil)
	return nil
}

func (f *File) beginPending() {
	f.pending++
}

// endPending decrements the in-flight counter and, if a bundled close was
// waiting on this being the last one, reports the queued callback to fire.
// The caller must invoke the returned callback itself, after releasing mu.
func (f *File) endPending() (cb client.Callback, fire bool) {
	f.pending--
	if f.pending == 0 && f.closeQueued {
		f.closeQueued = false
		cb = f.closeCallback
		f.closeCallback = nil
		f.opened = false
		return cb, true
	}
	return nil, false
}

func (f *File) ReadAsync(offset uint64, length uint32, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("Read")
	var data []byte
	if !failed {
		data = f.readAt(offset, length)
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, client.ChunkInfo{Offset: offset, BytesRead: uint32(len(data)), Data: data}, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

func (f *File) PgReadAsync(offset uint64, length uint32, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("PgRead")
	var data []byte
	pageSize := f.pageSize
	if !failed {
		data = f.readAt(offset, length)
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, client.PageInfo{
			Offset:    offset,
			BytesRead: uint32(len(data)),
			Data:      data,
			Checksums: pageChecksums(data, pageSize),
			PageSize:  uint32(pageSize),
		}, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

func (f *File) readAt(offset uint64, length uint32) []byte {
	if int(offset) >= len(f.data) {
		return nil
	}
	end := int(offset) + int(length)
	if end > len(f.data) {
		end = len(f.data)
	}
	out := make([]byte, end-int(offset))
	copy(out, f.data[offset:end])
	return out
}

func (f *File) WriteAsync(offset uint64, buffer []byte, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("Write")
	if !failed {
		f.writeAt(offset, buffer)
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, nil, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

func (f *File) PgWriteAsync(offset uint64, buffer []byte, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("PgWrite")
	if !failed {
		f.writeAt(offset, buffer)
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, nil, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

func (f *File) writeAt(offset uint64, buffer []byte) {
	end := int(offset) + len(buffer)
	if end > len(f.data) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[offset:end], buffer)
}

func (f *File) SyncAsync(timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if s, failed := f.fail("Sync"); failed {
		f.mu.Unlock()
		cb(s, nil, nil)
		return nil
	}
	f.mu.Unlock()
	cb(status.Ok, nil, nil)
	return nil
}

func (f *File) TruncateAsync(size uint64, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if s, failed := f.fail("Truncate"); failed {
		f.mu.Unlock()
		cb(s, nil, nil)
		return nil
	}
	if int(size) <= len(f.data) {
		f.data = f.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	f.mu.Unlock()
	cb(status.Ok, nil, nil)
	return nil
}

func (f *File) VectorReadAsync(requests []client.VectorReadRequest, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("VectorRead")
	var chunks []client.ChunkInfo
	if !failed {
		chunks = make([]client.ChunkInfo, len(requests))
		for i, req := range requests {
			data := f.readAt(req.Offset, req.Length)
			chunks[i] = client.ChunkInfo{Offset: req.Offset, BytesRead: uint32(len(data)), Data: data}
		}
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, client.VectorReadInfo{Chunks: chunks}, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

func (f *File) VectorWriteAsync(requests []client.VectorWriteRequest, timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	f.beginPending()
	s, failed := f.fail("VectorWrite")
	if !failed {
		for _, req := range requests {
			f.writeAt(req.Offset, req.Buffer)
		}
	}
	closeCB, fireClose := f.endPending()
	f.mu.Unlock()

	if failed {
		cb(s, nil, nil)
	} else {
		cb(status.Ok, nil, nil)
	}
	if fireClose {
		closeCB(status.Ok, nil, nil)
	}
	return nil
}

// pageChecksums computes a CRC32 checksum per fixed-size page over data.
// This is an in-memory integrity aid for the PgRead payload, not an
// on-disk checksum feature.
func pageChecksums(data []byte, pageSize int) []uint32 {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	var sums []uint32
	for off := 0; off < len(data); off += pageSize {
		end := off + pageSize
		if end > len(data) {
			end = len(data)
		}
		sums = append(sums, crc32.ChecksumIEEE(data[off:end]))
	}
	return sums
}
