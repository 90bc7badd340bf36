package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for S3-compatible services
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are served from. Derived from the
	// endpoint or the AWS virtual-hosted style when empty.
	PublicURL string
	PathStyle bool
}

// S3Store stores objects in an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	config S3Config
}

// NewS3Store creates a store. Static credentials are used when AccessKey is
// set, otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, &StorageError{Op: "init", Err: fmt.Errorf("bucket is required")}
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var awsCfg aws.Config
	if cfg.AccessKey != "" {
		awsCfg = aws.Config{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
	} else {
		loaded, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, &StorageError{Op: "init", Key: cfg.Bucket, Err: err}
		}
		awsCfg = loaded
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Store{client: client, config: cfg}, nil
}

// Put uploads body as key.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Delete removes key from the bucket.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// URL returns the public retrieval URL for key.
func (s *S3Store) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case s.config.PublicURL != "":
		return strings.TrimRight(s.config.PublicURL, "/") + "/" + escaped
	case s.config.Endpoint != "":
		return strings.TrimRight(s.config.Endpoint, "/") + "/" + s.config.Bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, escaped)
	}
}
