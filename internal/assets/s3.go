package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Service stores assets in an S3-compatible bucket (including R2 and MinIO)
// under kind-prefixed object keys. Listings return presigned GET URLs so the
// browser clients can fetch assets without bucket credentials.
type S3Service struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	urlExpiry     time.Duration
}

// S3Config holds configuration for the S3 asset backend.
type S3Config struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	URLExpiry       time.Duration // Default: 24 hours
}

// NewS3Service creates a new S3 asset service with the given configuration.
func NewS3Service(cfg S3Config) (*S3Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}

	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 24 * time.Hour
	}

	opts := s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	s3Client := s3.New(opts)

	return &S3Service{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		urlExpiry:     cfg.URLExpiry,
	}, nil
}

func objectKey(kind, name string) string {
	return kind + "/" + name
}

// List returns all assets under the kind prefix with presigned GET URLs.
func (s *S3Service) List(ctx context.Context, kind string) ([]Asset, error) {
	if !ValidKind(kind) {
		return nil, ErrUnsupportedKind
	}

	prefix := kind + "/"
	var out []Asset
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			url, err := s.presignGet(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			out = append(out, Asset{
				Name: name,
				URL:  url,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	if out == nil {
		out = []Asset{}
	}
	return out, nil
}

func (s *S3Service) presignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// Upload stores the file in the bucket and returns its descriptor.
func (s *S3Service) Upload(ctx context.Context, kind, name, contentType string, size int64, r io.Reader) (Asset, error) {
	if !ValidKind(kind) {
		return Asset{}, ErrUnsupportedKind
	}
	name, err := sanitizeName(name)
	if err != nil {
		return Asset{}, err
	}

	key := objectKey(kind, name)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.presignGet(ctx, key)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Name: name, URL: url, Size: size}, nil
}

// Delete removes the named asset from the bucket. S3 deletes are idempotent,
// so a missing object does not surface as ErrNotFound here.
func (s *S3Service) Delete(ctx context.Context, kind, name string) error {
	if !ValidKind(kind) {
		return ErrUnsupportedKind
	}
	name, err := sanitizeName(name)
	if err != nil {
		return err
	}

	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey(kind, name)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
