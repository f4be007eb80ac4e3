package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

// newTestClient builds an *s3.Client with no credentials or network access;
// constructing the client never makes a call, so this is safe to use in
// unit tests that only exercise New's own validation or pure helpers.
func newTestClient() *s3.Client {
	return s3.New(s3.Options{Region: "us-east-1"})
}

func TestNewRequiresClientAndBucket(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Client: newTestClient()})
	require.Error(t, err)
}

func TestNewDefaultsPartSize(t *testing.T) {
	f, err := New(Config{Client: newTestClient(), Bucket: "b"})
	require.NoError(t, err)
	require.Equal(t, int64(defaultPartSize), f.partSize)
}

func TestObjectKeyAppliesPrefix(t *testing.T) {
	f, err := New(Config{Client: newTestClient(), Bucket: "b", KeyPrefix: "dittoflow/"})
	require.NoError(t, err)
	f.key = "file-1"
	require.Equal(t, "dittoflow/file-1", f.objectKey())
}

func TestMergeAtGrowsAndOverwrites(t *testing.T) {
	out := mergeAt(nil, 0, []byte("hello"))
	require.Equal(t, []byte("hello"), out)

	out = mergeAt(out, 2, []byte("LL"))
	require.Equal(t, []byte("heLLo"), out)

	out = mergeAt(out, 10, []byte("!"))
	require.Len(t, out, 11)
	require.Equal(t, byte('!'), out[10])
}

func TestPageChecksumsOnePerPage(t *testing.T) {
	data := make([]byte, defaultPageSize+1)
	sums := pageChecksums(data, defaultPageSize)
	require.Len(t, sums, 2)
}
