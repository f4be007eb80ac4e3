// Package s3 implements client.File against Amazon S3 or an S3-compatible
// store, for replay runs whose trace references a backend that genuinely
// talks to remote storage over the network instead of the in-memory
// stand-in in pkg/client/memory.
//
// Path-Based Key Design:
// OpenAsync's url is used directly as the S3 object key, optionally with a
// configured prefix prepended; there is no separate path-to-key translation
// layer.
package s3

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
)

const defaultPartSize = 10 * 1024 * 1024 // 10MB default part size for multipart uploads.

// File is an S3-backed client.File. One File handle is opened per distinct
// file id in a replay trace.
type File struct {
	mu sync.Mutex

	s3Client  *s3.Client
	bucket    string
	keyPrefix string
	partSize  int64

	key          string
	opened       bool
	bundledClose bool
	pending      int
	closeQueued  bool
	closeCB      client.Callback
}

// Config configures an S3-backed File.
type Config struct {
	// Client is the configured S3 client. Required.
	Client *s3.Client

	// Bucket is the S3 bucket name. Required.
	Bucket string

	// KeyPrefix is an optional prefix prepended to every object key.
	KeyPrefix string

	// PartSize is reserved for future multipart-upload support; currently
	// writes are always single PutObject calls. Defaults to 10MB.
	PartSize int64
}

// New validates cfg and returns an unopened File.
func New(cfg Config) (*File, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}

	return &File{
		s3Client:  cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		partSize:  partSize,
	}, nil
}

func (f *File) objectKey() string {
	return f.keyPrefix + f.key
}

// SetBundledClose implements client.File.
func (f *File) SetBundledClose(bundled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundledClose = bundled
}

// ctxFor derives a context bounded by timeout (in seconds); 0 means no
// deadline, matching the pipeline engine's own "0 means no deadline" rule.
func ctxFor(timeout uint16) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
}

// OpenAsync records the object key this handle addresses. It does not
// itself touch S3 (the object need not exist yet; a subsequent Write may
// create it), but it does verify the bucket is reachable via HeadBucket,
// so a misconfigured backend fails fast rather than on the first real op.
func (f *File) OpenAsync(url string, flags, mode uint32, timeout uint16, cb client.Callback) error {
	go func() {
		ctx, cancel := ctxFor(timeout)
		defer cancel()

		_, err := f.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(f.bucket)})
		if err != nil {
			cb(translateError(err), nil, nil)
			return
		}

		f.mu.Lock()
		f.key = url
		f.opened = true
		f.mu.Unlock()
		cb(status.Ok, nil, nil)
	}()
	return nil
}

func (f *File) beginPending() {
	f.mu.Lock()
	f.pending++
	f.mu.Unlock()
}

func (f *File) endPending() {
	f.mu.Lock()
	f.pending--
	var flush client.Callback
	if f.pending == 0 && f.closeQueued {
		f.closeQueued = false
		flush = f.closeCB
		f.closeCB = nil
		f.opened = false
	}
	f.mu.Unlock()
	if flush != nil {
		flush(status.Ok, nil, nil)
	}
}

// CloseAsync implements client.File. With SetBundledClose(true), the
// callback is deferred until every in-flight *Async call against this
// handle has completed, so a recorded Close cannot race ahead of siblings
// still talking to S3.
func (f *File) CloseAsync(timeout uint16, cb client.Callback) error {
	f.mu.Lock()
	if f.bundledClose && f.pending > 0 {
		f.closeQueued = true
		f.closeCB = cb
		f.mu.Unlock()
		return nil
	}
	f.opened = false
	f.mu.Unlock()

	go cb(status.Ok, nil, nil)
	return nil
}

// StatAsync implements client.File via a HeadObject request.
func (f *File) StatAsync(force bool, timeout uint16, cb client.Callback) error {
	go func() {
		ctx, cancel := ctxFor(timeout)
		defer cancel()

		result, err := f.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(f.bucket),
			Key:    aws.String(f.objectKey()),
		})
		if err != nil {
			cb(translateError(err), nil, nil)
			return
		}

		var size uint64
		if result.ContentLength != nil {
			size = uint64(*result.ContentLength)
		}
		cb(status.Ok, client.StatInfo{Size: size}, nil)
	}()
	return nil
}

// SyncAsync implements client.File. S3 has no separate flush step beyond
// the PutObject calls Write/PgWrite already issue, so this is a no-op that
// still goes through the async callback contract.
func (f *File) SyncAsync(timeout uint16, cb client.Callback) error {
	go cb(status.Ok, nil, nil)
	return nil
}

// TruncateAsync implements client.File via read-modify-write: the object is
// read in full, resized, and rewritten (S3 has no native truncate).
func (f *File) TruncateAsync(size uint64, timeout uint16, cb client.Callback) error {
	f.beginPending()
	go func() {
		defer f.endPending()

		ctx, cancel := ctxFor(timeout)
		defer cancel()

		data, err := f.getObject(ctx)
		if err != nil && !isNotFound(err) {
			cb(translateError(err), nil, nil)
			return
		}

		resized := make([]byte, size)
		copy(resized, data)

		if err := f.putObject(ctx, resized); err != nil {
			cb(translateError(err), nil, nil)
			return
		}
		cb(status.Ok, nil, nil)
	}()
	return nil
}
