package filestore

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}
)

// S3Storage stores uploads in an S3 compatible bucket.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ core.FileStorage = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, conf *core.Config) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(conf.Storage.Region)}
	if conf.Storage.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if conf.Storage.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(conf.Storage.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := conf.Storage.PublicBaseURL
	if baseURL == "" {
		baseURL = "https://" + conf.Storage.Bucket + ".s3." + conf.Storage.Region + ".amazonaws.com"
	}
	return &S3Storage{
		client:  client,
		bucket:  conf.Storage.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", core.NewStorageError("uploading "+key, err)
	}
	return s.baseURL + "/" + key, nil
}
