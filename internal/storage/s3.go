// Package storage provides the S3-backed media store for capsule
// attachments. Capsule records only carry the opaque object key; the binary
// lives here.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const localEndpoint = "http://localhost:4566"

type S3Media struct {
	client *s3.Client
	bucket string
	region string
	local  bool
}

// NewS3Media creates an S3 media store. When local is true the client points
// at LocalStack instead of AWS.
func NewS3Media(ctx context.Context, bucket, region string, local bool) (*S3Media, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if local {
			o.BaseEndpoint = aws.String(localEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Media{client: client, bucket: bucket, region: region, local: local}, nil
}

// Put uploads a media object under the given key.
func (s *S3Media) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// URL returns the public object URL for a stored key.
func (s *S3Media) URL(key string) string {
	if s.local {
		return fmt.Sprintf("%s/%s/%s", localEndpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
