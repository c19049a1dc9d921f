// Package storage provides the durable object storage client for
// user-submitted media. It targets any S3-compatible provider (Cloudflare
// R2 in production, MinIO in development) through aws-sdk-go-v2.
//
// Uploads are size-gated: payloads below the configured threshold go out
// as a single atomic put, larger ones through the SDK's multipart transfer
// manager with bounded part size and concurrency. Failed multipart
// transfers abort their already-sent parts rather than leaving billable
// orphans. Public URLs are derived purely from configuration; deriving one
// never touches the network.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/rs/zerolog/log"
)

// objectAPI is the slice of the S3 client the storage layer calls
// directly. Kept narrow so tests can observe which transfer path ran.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// uploaderAPI is the multipart transfer manager behind an interface for
// the same reason.
type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Client is the object storage client. Safe for concurrent use; the
// underlying SDK clients hold no per-call state.
type Client struct {
	api       objectAPI
	uploader  uploaderAPI
	baseURL   string
	threshold int64
}

// NewClient builds a storage client from configuration: static credentials
// against the provider's account endpoint, path-style addressing for
// S3-compatible stores, and a multipart uploader tuned by PartSize and
// Concurrency with part abandonment on failure.
func NewClient(cfg *config.StorageConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint())
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(api, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		// Abort already-sent parts when a transfer fails instead of
		// leaving orphaned parts accruing storage charges.
		u.LeavePartsOnError = false
	})

	return &Client{
		api:       api,
		uploader:  uploader,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		threshold: cfg.MultipartThreshold,
	}, nil
}

// UploadFile transfers the payload to bucket/key and returns the public
// URL. Payloads below the multipart threshold use a single atomic put;
// larger ones use the multipart path. The payload is already fully
// buffered and size-capped by the validator, so no streaming backpressure
// is needed, but the context still cancels an in-flight multipart transfer
// (aborting its parts) if the client goes away.
//
// Failures are logged with bucket/key context and returned wrapped in
// apperrors.ErrStorage; the caller must surface a user-facing error.
func (c *Client) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	var err error
	if int64(len(data)) < c.threshold {
		_, err = c.api.PutObject(ctx, input)
	} else {
		_, err = c.uploader.Upload(ctx, input)
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Int("bytes", len(data)).
			Msg("Object upload failed")
		return "", fmt.Errorf("%w: upload %s/%s: %v", apperrors.ErrStorage, bucket, key, err)
	}

	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Str("content_type", contentType).
		Msg("Object uploaded")

	return c.PublicURL(bucket, key), nil
}

// DeleteFile removes a single object. Deletion is best-effort cleanup
// outside any critical path: failures are logged with context and
// swallowed.
func (c *Client) DeleteFile(ctx context.Context, bucket, key string) {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Msg("Object delete failed")
		return
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Object deleted")
}

// DeleteFiles removes a batch of objects with a single DeleteObjects call.
// Like DeleteFile, failures (including per-key errors in the response) are
// logged and swallowed.
func (c *Client) DeleteFiles(ctx context.Context, bucket string, keys []string) {
	if len(keys) == 0 {
		return
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("bucket", bucket).
			Int("keys", len(keys)).
			Msg("Batch object delete failed")
		return
	}

	for _, derr := range out.Errors {
		log.Error().
			Str("bucket", bucket).
			Str("key", aws.ToString(derr.Key)).
			Str("code", aws.ToString(derr.Code)).
			Str("message", aws.ToString(derr.Message)).
			Msg("Object delete rejected")
	}

	log.Debug().Str("bucket", bucket).Int("keys", len(keys)).Msg("Batch delete completed")
}

// PublicURL derives the public URL for an object from the configured base
// URL, the bucket, and the key. Pure string assembly; no network call.
func (c *Client) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, bucket, key)
}
