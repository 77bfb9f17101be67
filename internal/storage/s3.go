package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/frameforge/frameforge-agent/internal/config"
)

const keyPrefix = "projects/"

// S3Store uploads assets to an S3-compatible bucket (AWS, R2, MinIO).
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicURL  string
	downloader Downloader
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig, d Downloader) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" && cfg.Endpoint != "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: publicURL, downloader: d}, nil
}

// Save uploads under projects/<projectID>/<category>/<filename> and returns
// the object's public URL.
func (s *S3Store) Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error) {
	key, err := objectKey(projectID, category, filename)
	if err != nil {
		return "", err
	}
	key = keyPrefix + key

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Store) Open(ctx context.Context, location string) ([]byte, error) {
	if !isRemote(location) {
		return nil, fmt.Errorf("%w: %s is not a URL", ErrInvalidPath, location)
	}
	if s.downloader == nil {
		return nil, fmt.Errorf("%w: remote asset without downloader", ErrInvalidPath)
	}
	return s.downloader.Download(ctx, location)
}
