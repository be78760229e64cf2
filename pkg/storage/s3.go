package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Store reads remote sources from and delivers finished exports to
// Amazon S3
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3 backend using the AWS SDK default
// credentials chain (env vars, config files, IAM roles)
func NewS3Store(ctx context.Context) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3StoreWithClient creates an S3 backend around an existing client
func NewS3StoreWithClient(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

// splitObjectURI parses s3://bucket/key/path into bucket and key
func splitObjectURI(uri string) (bucket, key string, err error) {
	scheme, path, err := ParseURI(uri)
	if err != nil {
		return "", "", err
	}
	if scheme != "s3" {
		return "", "", fmt.Errorf("S3 storage only supports s3:// URIs, got %s://", scheme)
	}

	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing object key")
	}
	return bucket, key, nil
}

// Open streams an object from S3
func (s *S3Store) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return result.Body, nil
}

// Store uploads an artifact to S3
func (s *S3Store) Store(ctx context.Context, uri string, data io.Reader) error {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to put S3 object: %w", err)
	}
	return nil
}

// Exists sends a HeadObject for the key
func (s *S3Store) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check S3 object existence: %w", err)
	}
	return true, nil
}

// isNotFound recognizes the shapes a missing key comes back as.
// HeadObject reports a bare 404 rather than NoSuchKey.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	}
	if resp, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
		return resp.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
