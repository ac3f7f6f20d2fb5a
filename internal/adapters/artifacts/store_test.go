package artifacts

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

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tfidf.json"), []byte(`{"a":1}`), 0o644))

	store := NewFileStore(dir)
	assert.Equal(t, filepath.Join(dir, "tfidf.json"), store.Location("tfidf.json"))

	rc, err := store.Open(context.Background(), "tfidf.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = store.Open(context.Background(), "missing.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"models/v3/rf.json": "forest"}}
	store := NewS3Store(client, "models", "v3")

	assert.Equal(t, "s3://models/v3/rf.json", store.Location("rf.json"))

	rc, err := store.Open(context.Background(), "rf.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "forest", string(data))

	_, err = store.Open(context.Background(), "lstm.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://models/v3/lstm.json")
}

func TestS3StoreWithoutPrefix(t *testing.T) {
	store := NewS3Store(&fakeS3{}, "bucket", "")
	assert.Equal(t, "s3://bucket/tok.json", store.Location("tok.json"))
}
