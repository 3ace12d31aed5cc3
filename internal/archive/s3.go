package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config addresses an S3 compatible bucket such as MinIO.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive writes documents as objects in one bucket.
type S3Archive struct {
	client objectAPI
	bucket string
	prefix string
}

// NewS3Archive builds a client from static credentials.
func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: empty bucket", ErrInvalidLocation)
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Archive(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client objectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Write uploads data and returns an s3://bucket/key location.
func (a *S3Archive) Write(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, name)
	}
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}

// Read downloads an object. A bare key is resolved against the prefix.
func (a *S3Archive) Read(ctx context.Context, location string) ([]byte, error) {
	key, err := a.key(location)
	if err != nil {
		return nil, err
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download backup: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup body: %w", err)
	}
	return data, nil
}

func (a *S3Archive) key(location string) (string, error) {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket != a.bucket || key == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidLocation, location)
		}
		return key, nil
	}
	if location == "" {
		return "", fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}
	if a.prefix != "" && !strings.HasPrefix(location, a.prefix+"/") {
		return path.Join(a.prefix, location), nil
	}
	return location, nil
}
