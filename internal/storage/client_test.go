package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI records which transfer path the client took.
type stubAPI struct {
	putCalls    []*s3.PutObjectInput
	deleteCalls []*s3.DeleteObjectsInput
	err         error
}

func (s *stubAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.putCalls = append(s.putCalls, params)
	if s.err != nil {
		return nil, s.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (s *stubAPI) DeleteObject(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (s *stubAPI) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	s.deleteCalls = append(s.deleteCalls, params)
	if s.err != nil {
		return nil, s.err
	}
	return &s3.DeleteObjectsOutput{}, nil
}

type stubUploader struct {
	calls []*s3.PutObjectInput
	err   error
}

func (s *stubUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, s.err
	}
	return &manager.UploadOutput{}, nil
}

func newTestClient(api *stubAPI, uploader *stubUploader) *Client {
	return &Client{
		api:       api,
		uploader:  uploader,
		baseURL:   "https://cdn.example.com",
		threshold: 5 << 20,
	}
}

func TestClient_UploadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("small payload uses single put", func(t *testing.T) {
		api := &stubAPI{}
		uploader := &stubUploader{}
		client := newTestClient(api, uploader)

		data := bytes.Repeat([]byte("x"), 2<<20) // 2 MiB
		url, err := client.UploadFile(ctx, "gallery", "user/setup/1-photo.jpg", data, "image/jpeg")
		require.NoError(t, err)

		assert.Equal(t, "https://cdn.example.com/gallery/user/setup/1-photo.jpg", url)
		require.Len(t, api.putCalls, 1)
		assert.Empty(t, uploader.calls)
		assert.Equal(t, "gallery", aws.ToString(api.putCalls[0].Bucket))
		assert.Equal(t, "image/jpeg", aws.ToString(api.putCalls[0].ContentType))
	})

	t.Run("large payload uses multipart", func(t *testing.T) {
		api := &stubAPI{}
		uploader := &stubUploader{}
		client := newTestClient(api, uploader)

		data := bytes.Repeat([]byte("x"), 6<<20) // 6 MiB
		_, err := client.UploadFile(ctx, "gallery", "k", data, "image/png")
		require.NoError(t, err)

		assert.Empty(t, api.putCalls)
		assert.Len(t, uploader.calls, 1)
	})

	t.Run("threshold boundary goes multipart", func(t *testing.T) {
		api := &stubAPI{}
		uploader := &stubUploader{}
		client := newTestClient(api, uploader)

		data := bytes.Repeat([]byte("x"), 5<<20) // exactly the threshold
		_, err := client.UploadFile(ctx, "gallery", "k", data, "image/png")
		require.NoError(t, err)

		assert.Empty(t, api.putCalls)
		assert.Len(t, uploader.calls, 1)
	})

	t.Run("provider failure wraps the storage sentinel", func(t *testing.T) {
		api := &stubAPI{err: errors.New("connection reset")}
		client := newTestClient(api, &stubUploader{})

		_, err := client.UploadFile(ctx, "gallery", "k", []byte("small"), "image/jpeg")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})

	t.Run("multipart failure wraps the storage sentinel", func(t *testing.T) {
		uploader := &stubUploader{err: errors.New("part 3 failed")}
		client := newTestClient(&stubAPI{}, uploader)

		data := bytes.Repeat([]byte("x"), 6<<20)
		_, err := client.UploadFile(ctx, "gallery", "k", data, "image/jpeg")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

func TestClient_DeleteFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("batches keys into one call", func(t *testing.T) {
		api := &stubAPI{}
		client := newTestClient(api, &stubUploader{})

		client.DeleteFiles(ctx, "gallery", []string{"a", "b", "c"})

		require.Len(t, api.deleteCalls, 1)
		assert.Len(t, api.deleteCalls[0].Delete.Objects, 3)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		api := &stubAPI{}
		client := newTestClient(api, &stubUploader{})

		client.DeleteFiles(ctx, "gallery", nil)
		assert.Empty(t, api.deleteCalls)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		api := &stubAPI{err: errors.New("boom")}
		client := newTestClient(api, &stubUploader{})

		// Must not panic or propagate; deletion is best-effort cleanup.
		client.DeleteFiles(ctx, "gallery", []string{"a"})
	})
}

func TestClient_PublicURL(t *testing.T) {
	client := newTestClient(&stubAPI{}, &stubUploader{})

	url := client.PublicURL("gallery", "user/setup/1-photo.jpg")
	assert.Equal(t, "https://cdn.example.com/gallery/user/setup/1-photo.jpg", url)
}
