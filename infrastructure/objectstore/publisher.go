package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"audioprep/domain/distribution"
)

// DefaultLinkExpiry is how long presigned download links stay valid
const DefaultLinkExpiry = 7 * 24 * time.Hour

// Config holds S3-compatible storage settings
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// ObjectAPI is the subset of *minio.Client used by Publisher
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Publisher implements distribution.Publisher on S3-compatible storage.
// Objects are written under a fixed key so re-publishing overwrites.
type Publisher struct {
	api    ObjectAPI
	bucket string
	region string
	expiry time.Duration
}

// PublisherOption is a functional option for configuring Publisher
type PublisherOption func(*Publisher)

// WithObjectAPI sets a custom object API (for testing)
func WithObjectAPI(api ObjectAPI) PublisherOption {
	return func(p *Publisher) {
		p.api = api
	}
}

// WithLinkExpiry sets how long presigned links remain valid
func WithLinkExpiry(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.expiry = d
		}
	}
}

// NewPublisher creates a publisher for cfg.Bucket
func NewPublisher(cfg Config, opts ...PublisherOption) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	p := &Publisher{
		bucket: cfg.Bucket,
		region: cfg.Region,
		expiry: DefaultLinkExpiry,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.api == nil {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("s3 endpoint is required")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		p.api = client
	}

	return p, nil
}

// ObjectKey joins the configured prefix and file name
func ObjectKey(prefix, fileName string) string {
	if prefix == "" {
		return fileName
	}
	return path.Join(prefix, fileName)
}

// Publish implements distribution.Publisher
func (p *Publisher) Publish(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}

	key := ObjectKey(req.Destination, req.FileName)
	info, err := p.api.FPutObject(ctx, p.bucket, key, req.LocalPath, minio.PutObjectOptions{
		ContentType: req.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	link, err := p.api.PresignedGetObject(ctx, p.bucket, key, p.expiry, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return &distribution.UploadResult{
		FileID:       key,
		FileName:     req.FileName,
		ShareableURL: link.String(),
		Size:         info.Size,
	}, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.api.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.api.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Ensure Publisher implements distribution.Publisher
var _ distribution.Publisher = (*Publisher)(nil)
