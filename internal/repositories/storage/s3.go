package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Area.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3-compatible endpoint such as MinIO.
type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Client builds a path-style client for the given endpoint.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKey,
			o.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	}), nil
}

// S3Area stores one object per key under a prefix. Writes of several keys
// are issued one by one and are not atomic.
type S3Area struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Area(client S3API, bucket, prefix string) *S3Area {
	return &S3Area{client: client, bucket: bucket, prefix: prefix}
}

func (a *S3Area) objectKey(k string) *string {
	return aws.String(a.prefix + k + ".json")
}

func (a *S3Area) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    a.objectKey(k),
		})
		if isMissing(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get object %s: %w", k, err)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read object %s: %w", k, err)
		}
		out[k] = body
	}
	return out, nil
}

func (a *S3Area) Set(ctx context.Context, items map[string][]byte) error {
	for k, v := range items {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         a.objectKey(k),
			Body:        bytes.NewReader(v),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to put object %s: %w", k, err)
		}
	}
	return nil
}

func (a *S3Area) Remove(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    a.objectKey(k),
		})
		if err != nil && !isMissing(err) {
			return fmt.Errorf("failed to delete object %s: %w", k, err)
		}
	}
	return nil
}

func isMissing(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
