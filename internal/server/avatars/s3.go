// Package avatars stores user avatar images in S3-compatible object storage.
package avatars

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Options holds S3 endpoint, credentials and bucket settings.
type Options struct {
	Region       string
	RootUser     string
	RootPassword string
	BaseEndpoint string
	Bucket       string
	PublicURL    string
}

// S3Store uploads avatars under avatars/<userID>/ and reports their public URL.
type S3Store struct {
	opts Options
}

// NewS3Store returns a store for opts.
func NewS3Store(opts Options) *S3Store {
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	return &S3Store{opts: opts}
}

func (s *S3Store) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.RootUser,     // MINIO_ROOT_USER
			s.opts.RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.opts.BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// ObjectKey returns a fresh object key for an avatar of the given type.
func ObjectKey(userID, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.New(), ext), nil
}

// Upload stores body and returns the public URL of the new object.
func (s *S3Store) Upload(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	key, err := ObjectKey(userID, contentType)
	if err != nil {
		return "", err
	}

	c, err := s.client(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	bucket := s.opts.Bucket
	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	return s.opts.PublicURL + "/" + key, nil
}
