// Package s3 implements an S3-compatible bundle metadata source (AWS S3 or
// MinIO). Bundle documents are objects under "<prefix><uuid>.<version>/".
package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bundleindex/internal/source/core"
)

// Store implements core.Store over a single bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string // optional key prefix, e.g. "bundles/"
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//   BUNDLEINDEX_SOURCE_DRIVER=s3
//   BUNDLEINDEX_SOURCE_S3_BUCKET=<bucket> (required)
//   BUNDLEINDEX_SOURCE_S3_REGION=<region> (default us-east-1)
//   BUNDLEINDEX_SOURCE_S3_PREFIX=<key prefix> (optional)
//   BUNDLEINDEX_SOURCE_S3_ENDPOINT=<url> (optional, for MinIO)
//   BUNDLEINDEX_SOURCE_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New creates an S3 metadata source from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// OpenFromEnv constructs an S3 source from process environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("BUNDLEINDEX_SOURCE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("BUNDLEINDEX_SOURCE_S3_BUCKET required for s3 driver")
	}
	cfg := Config{
		Bucket:          bucket,
		Region:          os.Getenv("BUNDLEINDEX_SOURCE_S3_REGION"),
		Prefix:          os.Getenv("BUNDLEINDEX_SOURCE_S3_PREFIX"),
		Endpoint:        os.Getenv("BUNDLEINDEX_SOURCE_S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		PathStyle:       strings.EqualFold(os.Getenv("BUNDLEINDEX_SOURCE_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, cfg)
}

// Driver returns the source driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Fetch lists the bundle's key prefix and downloads every .json object.
func (s *Store) Fetch(ctx context.Context, uuid, version string) (map[string]json.RawMessage, error) {
	keyPrefix := s.prefix + uuid + "." + version + "/"
	docs := make(map[string]json.RawMessage)
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &keyPrefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list bundle objects: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			data, err := s.getObject(ctx, key)
			if err != nil {
				return nil, err
			}
			docs[name] = data
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	if len(docs) == 0 {
		return nil, core.NotFoundError{UUID: uuid, Version: version}
	}
	return docs, nil
}

func (s *Store) getObject(ctx context.Context, key string) (json.RawMessage, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}
