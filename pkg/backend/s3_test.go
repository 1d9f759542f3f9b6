package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory object store implementing S3API
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Backend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	b := NewS3BackendFromClient(fake, "perm-bucket", "config")

	in := testDoc{"admin": {"admin.manage_users": true}}
	require.NoError(t, b.Save(ctx, "RolePermissions.yaml", in))

	_, ok := fake.objects["perm-bucket/config/RolePermissions.yaml"]
	assert.True(t, ok)

	var out testDoc
	found, err := b.Load(ctx, "RolePermissions.yaml", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
	assert.Equal(t, "s3:perm-bucket", b.Name())
}

func TestS3Backend_NoSuchKey(t *testing.T) {
	b := NewS3BackendFromClient(newFakeS3(), "perm-bucket", "")

	var out testDoc
	found, err := b.Load(context.Background(), "UserRegistry.yaml", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestS3Backend_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	b := NewS3BackendFromClient(fake, "perm-bucket", "")

	err := b.Save(context.Background(), "x", testDoc{})
	assert.ErrorIs(t, err, fake.putErr)
}

func TestNewS3Backend_RequiresBucket(t *testing.T) {
	_, err := NewS3Backend(context.Background(), Config{Type: TypeS3})
	assert.Error(t, err)
}
