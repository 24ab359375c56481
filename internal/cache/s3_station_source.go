package cache

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const s3Scheme = "s3://"

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3StationSource reads the station list and ignore list from S3 objects
type S3StationSource struct {
	client S3Client
}

func NewS3StationSource(client S3Client) *S3StationSource {
	return &S3StationSource{client: client}
}

// IsS3URI reports whether location names an S3 object
func IsS3URI(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URI splits "s3://bucket/key" into bucket and key
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an S3 URI: %q", uri)
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket name in %q", uri)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty object key in %q", uri)
	}
	return bucket, key, nil
}

// Open returns the body of the object at uri. The caller must close it.
func (s *S3StationSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3 object %s/%s: %w", bucket, key, err)
	}

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Msg("Opened station list from S3")

	return result.Body, nil
}
