// Package s3 reads objects from AWS S3 or an S3 compatible endpoint such as MinIO.
package s3

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	gerrors "github.com/go-faster/errors"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

type Config struct {
	Region string
	// Endpoint switches to a custom endpoint, e.g. MinIO.
	Endpoint  string
	PathStyle bool
	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
}

type Store struct {
	client *s3.Client
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, gerrors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewFromClient(client), nil
}

func NewFromClient(client *s3.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Driver() blob.Driver { return blob.DriverS3 }

func (s *Store) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if err := blob.CheckKey(bucket, object); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(object)})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, blob.ErrNotFound
		}
		return nil, gerrors.Wrapf(err, "get s3://%s/%s", bucket, object)
	}
	return out.Body, nil
}

func (s *Store) Put(ctx context.Context, bucket, object string, r io.Reader, contentType string) error {
	if err := blob.CheckKey(bucket, object); err != nil {
		return err
	}
	in := &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(object), Body: r}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return gerrors.Wrapf(err, "put s3://%s/%s", bucket, object)
	}
	return nil
}
