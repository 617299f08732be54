package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"burnshare/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store talks to AWS S3 or any S3-compatible endpoint (R2, MinIO gateway).
type S3Store struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

func NewS3Store(ctx context.Context, conf config.Blob) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var endpoint *string
	if conf.Endpoint != "" {
		endpoint = aws.String(conf.Endpoint)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.AccessKeyID != "" {
			o.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.SecretAccessKey, ""))
		}
		o.BaseEndpoint = endpoint
		o.UsePathStyle = endpoint != nil
	})

	return &S3Store{
		bucket:   conf.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentTypeOrDefault(contentType)),
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("S3Store.Put: %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("S3Store.Get: %s: %w", key, err)
	}

	return &Object{
		Body:        out.Body,
		ContentType: contentTypeOrDefault(aws.ToString(out.ContentType)),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("S3Store.Delete: %s: %w", key, err)
	}
	return nil
}
