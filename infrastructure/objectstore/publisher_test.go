package objectstore

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioprep/domain/distribution"
)

type mockObjectAPI struct {
	bucketExists bool
	madeBucket   string
	putKey       string
	putPath      string
	putOpts      minio.PutObjectOptions
	expiry       time.Duration
	putErr       error
}

func (m *mockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.bucketExists, nil
}

func (m *mockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	m.madeBucket = bucketName
	return nil
}

func (m *mockObjectAPI) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putErr != nil {
		return minio.UploadInfo{}, m.putErr
	}
	m.putKey = objectName
	m.putPath = filePath
	m.putOpts = opts
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: 2048}, nil
}

func (m *mockObjectAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	m.expiry = expires
	return url.Parse("https://s3.example.com/" + bucketName + "/" + objectName + "?X-Amz-Signature=abc")
}

func TestPublisher_Publish(t *testing.T) {
	api := &mockObjectAPI{bucketExists: true}
	p, err := NewPublisher(Config{Bucket: "audio"}, WithObjectAPI(api), WithLinkExpiry(time.Hour))
	require.NoError(t, err)

	result, err := p.Publish(context.Background(), distribution.UploadRequest{
		LocalPath:   "/tmp/downloads/Talk_clean.wav",
		FileName:    "Talk_clean.wav",
		Destination: "cleaned",
		MimeType:    distribution.MimeTypeWAV,
	})
	require.NoError(t, err)

	assert.Equal(t, "cleaned/Talk_clean.wav", api.putKey)
	assert.Equal(t, "/tmp/downloads/Talk_clean.wav", api.putPath)
	assert.Equal(t, "audio/wav", api.putOpts.ContentType)
	assert.Equal(t, time.Hour, api.expiry)
	assert.Empty(t, api.madeBucket)

	assert.Equal(t, "cleaned/Talk_clean.wav", result.FileID)
	assert.Equal(t, int64(2048), result.Size)
	assert.Contains(t, result.ShareableURL, "https://s3.example.com/audio/cleaned/Talk_clean.wav")
}

func TestPublisher_CreatesMissingBucket(t *testing.T) {
	api := &mockObjectAPI{}
	p, err := NewPublisher(Config{Bucket: "fresh"}, WithObjectAPI(api))
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), distribution.UploadRequest{LocalPath: "a.wav", FileName: "a.wav"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", api.madeBucket)
	assert.Equal(t, "a.wav", api.putKey)
	assert.Equal(t, DefaultLinkExpiry, api.expiry)
}

func TestPublisher_UploadError(t *testing.T) {
	api := &mockObjectAPI{bucketExists: true, putErr: errors.New("access denied")}
	p, err := NewPublisher(Config{Bucket: "audio"}, WithObjectAPI(api))
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), distribution.UploadRequest{LocalPath: "a.wav", FileName: "a.wav"})
	assert.ErrorContains(t, err, "access denied")
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(Config{})
	assert.Error(t, err)

	_, err = NewPublisher(Config{Bucket: "b"})
	assert.ErrorContains(t, err, "endpoint")
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.wav", ObjectKey("", "a.wav"))
	assert.Equal(t, "x/y/a.wav", ObjectKey("x/y/", "a.wav"))
}
