// Package archive stores batch outputs in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const contentTypeJSON = "application/json"

// PutObjectAPI is the subset of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client loads the default AWS configuration for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Uploader writes objects under a fixed bucket and prefix.
type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewUploader(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey returns the key a batch run is stored under.
func ObjectKey(prefix, runID string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return runID + ".json"
	}
	return path.Join(prefix, runID+".json")
}

// Upload stores a batch output document and returns its s3:// URI.
func (u *Uploader) Upload(ctx context.Context, runID string, content []byte) (string, error) {
	if u.bucket == "" {
		return "", fmt.Errorf("no archive bucket configured")
	}
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	key := ObjectKey(u.prefix, runID)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(u.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(content),
		ContentType:          aws.String(contentTypeJSON),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", u.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
