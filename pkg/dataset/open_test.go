package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves objects from memory
type fakeS3 struct {
	objects map[string]string
	calls   []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.calls = append(f.calls, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{"s3://graphs/twitter/User_Edge.csv", "graphs", "twitter/User_Edge.csv", false},
		{"s3://graphs/edges.csv", "graphs", "edges.csv", false},
		{"s3://graphs/", "", "", true},
		{"s3:///edges.csv", "", "", true},
		{"https://graphs/edges.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.location)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestOpener_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	require.NoError(t, os.WriteFile(path, []byte("Source,Target\n1,2\n"), 0o600))

	rc, err := NewOpener(S3Options{}).Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Source,Target\n1,2\n", string(data))
}

func TestOpener_MissingLocalFile(t *testing.T) {
	_, err := NewOpener(S3Options{}).Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewOpener(S3Options{}).Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestOpener_S3(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"graphs/edges.csv": "Source,Target\n1,2\n"}}
	opener := NewOpenerWithClient(client)

	rc, err := opener.Open(context.Background(), "s3://graphs/edges.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "Source,Target\n1,2\n", string(data))
	assert.Equal(t, []string{"graphs/edges.csv"}, client.calls)

	_, err = opener.Open(context.Background(), "s3://graphs/missing.csv")
	assert.ErrorContains(t, err, "s3://graphs/missing.csv")
}
