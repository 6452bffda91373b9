package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Target stores backup objects.
type Target interface {
	// Put uploads size bytes from body under key.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error
	// Get opens the object stored under key. Missing keys yield common.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// S3Config addresses an S3-compatible bucket (AWS, MinIO, R2).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Target is a Target backed by an S3 bucket.
type S3Target struct {
	client *s3.Client
	bucket string
}

var _ Target = (*S3Target)(nil)

// NewS3Target builds a client with static credentials. A custom endpoint
// switches to path-style addressing, which MinIO needs.
func NewS3Target(ctx context.Context, c S3Config) (*S3Target, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	region := c.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(c.Endpoint, "/"))
			o.UsePathStyle = true
		}
	})
	return &S3Target{client: client, bucket: c.Bucket}, nil
}

func (t *S3Target) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (t *S3Target) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("s3 object %s: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return out.Body, nil
}
