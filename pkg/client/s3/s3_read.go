package s3

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/status"
)

const defaultPageSize = 4096

// ReadAsync implements client.File using an S3 byte-range GetObject request,
// avoiding a full-object download for a partial read.
func (f *File) ReadAsync(offset uint64, length uint32, timeout uint16, cb client.Callback) error {
	f.beginPending()
	go func() {
		defer f.endPending()

		ctx, cancel := ctxFor(timeout)
		defer cancel()

		data, err := f.getRange(ctx, offset, length)
		if err != nil {
			cb(translateError(err), nil, nil)
			return
		}
		cb(status.Ok, client.ChunkInfo{Offset: offset, BytesRead: uint32(len(data)), Data: data}, nil)
	}()
	return nil
}

// PgReadAsync implements client.File the same way as ReadAsync, additionally
// computing a per-page CRC32 checksum over the returned data, matching
// pkg/client/memory's PgRead payload shape.
func (f *File) PgReadAsync(offset uint64, length uint32, timeout uint16, cb client.Callback) error {
	f.beginPending()
	go func() {
		defer f.endPending()

		ctx, cancel := ctxFor(timeout)
		defer cancel()

		data, err := f.getRange(ctx, offset, length)
		if err != nil {
			cb(translateError(err), nil, nil)
			return
		}
		cb(status.Ok, client.PageInfo{
			Offset:    offset,
			BytesRead: uint32(len(data)),
			Data:      data,
			Checksums: pageChecksums(data, defaultPageSize),
			PageSize:  defaultPageSize,
		}, nil)
	}()
	return nil
}

// VectorReadAsync implements client.File by issuing one ranged GetObject per
// request sequentially; S3 has no native scatter-read, so this is the
// straightforward decomposition.
func (f *File) VectorReadAsync(requests []client.VectorReadRequest, timeout uint16, cb client.Callback) error {
	f.beginPending()
	go func() {
		defer f.endPending()

		ctx, cancel := ctxFor(timeout)
		defer cancel()

		chunks := make([]client.ChunkInfo, len(requests))
		for i, req := range requests {
			data, err := f.getRange(ctx, req.Offset, req.Length)
			if err != nil {
				cb(translateError(err), nil, nil)
				return
			}
			chunks[i] = client.ChunkInfo{Offset: req.Offset, BytesRead: uint32(len(data)), Data: data}
		}
		cb(status.Ok, client.VectorReadInfo{Chunks: chunks}, nil)
	}()
	return nil
}

// getObject downloads the whole object.
func (f *File) getObject(ctx context.Context) ([]byte, error) {
	result, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = result.Body.Close() }()
	return io.ReadAll(result.Body)
}

// getRange downloads [offset, offset+length) using an S3 Range request. A
// request that starts at or beyond the object's end returns an empty slice
// rather than an error, matching pkg/client/memory.readAt's "short read"
// behavior instead of S3's native InvalidRange error.
func (f *File) getRange(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}

	end := offset + uint64(length) - 1
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, end)

	result, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isNotFound(err error) bool {
	var notFound *types.NoSuchKey
	return errors.As(err, &notFound)
}

func translateError(err error) status.Status {
	if isNotFound(err) {
		return status.New(status.IOFailure, 2)
	}
	return status.New(status.IOFailure, 1)
}

// pageChecksums computes a CRC32 checksum per fixed-size page over data,
// mirroring pkg/client/memory's PgRead payload.
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
