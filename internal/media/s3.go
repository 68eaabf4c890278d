package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
)

const uploadPrefix = "uploads"

// objectAPI is the subset of *s3.Client the uploader calls.
type objectAPI interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader hosts files in an S3-compatible bucket.
type S3Uploader struct {
	client   objectAPI
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Uploader configures an uploader targeting the provided object store.
func NewS3Uploader(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Uploader, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 uploader: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	baseURL := cfg.PublicBaseURL
	if strings.TrimSpace(baseURL) == "" && strings.TrimSpace(cfg.Endpoint) != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return newS3Uploader(client, cfg.Bucket, baseURL), nil
}

func newS3Uploader(client objectAPI, bucket, baseURL string) *S3Uploader {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Uploader{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload puts the file at localPath into the bucket under a generated key.
func (s *S3Uploader) Upload(ctx context.Context, localPath string) (Asset, error) {
	src, err := openSource(localPath, uploadPrefix)
	if err != nil {
		discard(ctx, localPath)
		return Asset{}, err
	}
	defer src.file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(src.key),
		Body:        src.file,
		ContentType: aws.String(src.contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		src.file.Close()
		discard(ctx, localPath)
		return Asset{}, fmt.Errorf("%w: s3 upload %s: %v", ErrUploadFailed, src.key, err)
	}

	logging.FromContext(ctx).Info("uploaded media", "bucket", s.bucket, "key", src.key, "size", src.size)

	return Asset{
		URL:         publicURL(s.baseURL, src.key),
		Key:         src.key,
		Size:        src.size,
		ContentType: src.contentType,
	}, nil
}

// Remove deletes the object stored under key.
func (s *S3Uploader) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	logging.FromContext(ctx).Info("removed media", "bucket", s.bucket, "key", key)
	return nil
}

var (
	_ Uploader = (*S3Uploader)(nil)
	_ Remover  = (*S3Uploader)(nil)
)
