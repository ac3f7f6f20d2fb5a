package artifacts

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client the store needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads artifacts from an S3 bucket under a key prefix
type S3Store struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Store creates a new S3-backed artifact store
func NewS3Store(client ObjectGetter, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Open downloads the named artifact
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3 object %s: %w", s.Location(name), err)
	}
	return out.Body, nil
}

// Location returns the artifact's s3 URI
func (s *S3Store) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
