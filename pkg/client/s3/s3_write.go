package s3

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
)

// WriteAsync implements client.File via read-modify-write: the existing
// object (if any) is downloaded, the new bytes are merged in at offset, and
// the whole result is re-uploaded with PutObject. S3 has no in-place write,
// so every write pays for a full round trip; this intentionally forgoes any
// sequential-append buffering optimization for simplicity, which is
// acceptable for a replay driver's accuracy goal.
func (f *File) WriteAsync(offset uint64, buffer []byte, timeout uint16, cb client.Callback) error {
	f.beginPending()
	go func() {
		defer f.endPending()

		ctx, cancel := ctxFor(timeout)
		defer cancel()

		if err := f.readModifyWrite(ctx, offset, buffer); err != nil {
			cb(translateError(err), nil, nil)
			return
		}
		cb(status.Ok, nil, nil)
	}()
	return nil
}

// PgWriteAsync implements client.File identically to WriteAsync; pages are
// a read-side concept (PgRead's per-page checksums) and have no effect on
// how a write is applied.
func (f *File) PgWriteAsync(offset uint64, buffer []byte, timeout uint16, cb client.Callback) error {
	return f.WriteAsync(offset, buffer, timeout, cb)
}

// VectorWriteAsync implements client.File by applying each request's
// read-modify-write in sequence against the same in-memory snapshot before
// a single final upload, avoiding one PutObject per request.
func (f *File) VectorWriteAsync(requests []client.VectorWriteRequest, timeout uint16, cb client.Callback) error {
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

		for _, req := range requests {
			data = mergeAt(data, req.Offset, req.Buffer)
		}

		if err := f.putObject(ctx, data); err != nil {
			cb(translateError(err), nil, nil)
			return
		}
		cb(status.Ok, nil, nil)
	}()
	return nil
}

func (f *File) readModifyWrite(ctx context.Context, offset uint64, buffer []byte) error {
	data, err := f.getObject(ctx)
	if err != nil && !isNotFound(err) {
		return err
	}
	merged := mergeAt(data, offset, buffer)
	return f.putObject(ctx, merged)
}

// mergeAt returns data with buffer copied in starting at offset, growing the
// slice if the write extends past the current end.
func mergeAt(data []byte, offset uint64, buffer []byte) []byte {
	end := int(offset) + len(buffer)
	if end > len(data) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[offset:end], buffer)
	return data
}

func (f *File) putObject(ctx context.Context, data []byte) error {
	_, err := f.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
		Body:   bytes.NewReader(data),
	})
	return err
}
