//go:build integration

package s3_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittoflow/pkg/client"
	dittos3 "github.com/marmos91/dittoflow/pkg/client/s3"
	"github.com/marmos91/dittoflow/pkg/status"
	"github.com/stretchr/testify/require"
)

// setupTestS3 connects to Localstack (or another S3-compatible endpoint)
// and creates a fresh, isolated test bucket.
//
// Prerequisites:
//
//	docker run --rm -p 4566:4566 localstack/localstack
//
// Run with: go test -tags=integration ./test/integration/s3/...
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := "http://localhost:4566"

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	_, err = s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	require.NoError(t, err)

	cleanup := func() {
		listResp, _ := s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				_, _ = s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucketName), Key: obj.Key})
			}
		}
		_, _ = s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	}

	return s3Client, cleanup
}

// call submits fn and blocks until its callback fires, returning what the
// callback received. Every client.File method is async-by-contract even
// though Localstack itself answers promptly, so every assertion in this
// suite goes through this helper rather than assuming synchronous return.
func call(t *testing.T, fn func(cb client.Callback) error) (status.Status, any) {
	t.Helper()
	done := make(chan struct{})
	var gotStatus status.Status
	var gotResp any
	require.NoError(t, fn(func(s status.Status, resp any, _ []string) {
		gotStatus, gotResp = s, resp
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	return gotStatus, gotResp
}

// TestS3FileRoundTrip exercises client.File's open/write/read/stat/truncate/
// close contract end to end against a real (Localstack) S3 backend.
func TestS3FileRoundTrip(t *testing.T) {
	bucketName := "dittoflow-test-bucket"
	s3Client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	f, err := dittos3.New(dittos3.Config{Client: s3Client, Bucket: bucketName, KeyPrefix: "round-trip/"})
	require.NoError(t, err)

	s, _ := call(t, func(cb client.Callback) error {
		return f.OpenAsync("round-trip-object", 0, 0, 0, cb)
	})
	require.True(t, s.IsOK())

	payload := []byte("hello from the replay driver")
	s, _ = call(t, func(cb client.Callback) error {
		return f.WriteAsync(0, payload, 0, cb)
	})
	require.True(t, s.IsOK())

	s, resp := call(t, func(cb client.Callback) error {
		return f.ReadAsync(0, uint32(len(payload)), 0, cb)
	})
	require.True(t, s.IsOK())
	chunk, ok := resp.(client.ChunkInfo)
	require.True(t, ok)
	require.Equal(t, payload, chunk.Data)

	s, resp = call(t, func(cb client.Callback) error {
		return f.StatAsync(false, 0, cb)
	})
	require.True(t, s.IsOK())
	info, ok := resp.(client.StatInfo)
	require.True(t, ok)
	require.Equal(t, uint64(len(payload)), info.Size)

	s, _ = call(t, func(cb client.Callback) error {
		return f.TruncateAsync(5, 0, cb)
	})
	require.True(t, s.IsOK())

	s, resp = call(t, func(cb client.Callback) error {
		return f.StatAsync(false, 0, cb)
	})
	require.True(t, s.IsOK())
	info, ok = resp.(client.StatInfo)
	require.True(t, ok)
	require.Equal(t, uint64(5), info.Size)

	s, _ = call(t, func(cb client.Callback) error {
		return f.CloseAsync(0, cb)
	})
	require.True(t, s.IsOK())
}

// TestS3FileVectorWrite exercises VectorWriteAsync's multi-request
// read-modify-write merge and VectorReadAsync's per-request ranged read.
func TestS3FileVectorWrite(t *testing.T) {
	bucketName := "dittoflow-test-bucket-vector"
	s3Client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	f, err := dittos3.New(dittos3.Config{Client: s3Client, Bucket: bucketName, KeyPrefix: "vector/"})
	require.NoError(t, err)

	s, _ := call(t, func(cb client.Callback) error {
		return f.OpenAsync("vector-object", 0, 0, 0, cb)
	})
	require.True(t, s.IsOK())

	s, _ = call(t, func(cb client.Callback) error {
		return f.VectorWriteAsync([]client.VectorWriteRequest{
			{Offset: 0, Buffer: []byte("AAAA")},
			{Offset: 10, Buffer: []byte("BBBB")},
		}, 0, cb)
	})
	require.True(t, s.IsOK())

	s, resp := call(t, func(cb client.Callback) error {
		return f.VectorReadAsync([]client.VectorReadRequest{
			{Offset: 0, Length: 4},
			{Offset: 10, Length: 4},
		}, 0, cb)
	})
	require.True(t, s.IsOK())
	info, ok := resp.(client.VectorReadInfo)
	require.True(t, ok)
	require.Equal(t, []byte("AAAA"), info.Chunks[0].Data)
	require.Equal(t, []byte("BBBB"), info.Chunks[1].Data)
}
