// Package s3 archives immutable snapshot exports to an S3-compatible bucket
// (AWS S3 or MinIO) for sharing and debugging. Keys are timestamped; an
// existing key is never overwritten.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"cachecore/internal/snapshot/memory"
)

const contentType = "application/json"

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; if set enables custom endpoint (e.g. MinIO)
	PathStyle bool
	Prefix    string // key prefix, default "snapshots/"
}

// Archive uploads snapshot exports to a single bucket.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
	clock  func() time.Time
}

// New creates an S3 snapshot archive from Config.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
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
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "snapshots/"
	}
	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		clock:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// OpenFromEnv constructs an archive from process environment:
//
//	CACHECORE_ARCHIVE_S3_BUCKET=<bucket> (required)
//	CACHECORE_ARCHIVE_S3_REGION=<region> (default us-east-1)
//	CACHECORE_ARCHIVE_S3_ENDPOINT=<url> (optional, for MinIO)
//	CACHECORE_ARCHIVE_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
func OpenFromEnv(ctx context.Context) (*Archive, error) {
	bucket := os.Getenv("CACHECORE_ARCHIVE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("CACHECORE_ARCHIVE_S3_BUCKET required for s3 archive")
	}
	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("CACHECORE_ARCHIVE_S3_REGION"),
		Endpoint:  os.Getenv("CACHECORE_ARCHIVE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("CACHECORE_ARCHIVE_S3_PATH_STYLE"), "true"),
	})
}

// Upload writes the snapshot under a timestamped key and returns the key.
// An object already present at the key is an error; archives are immutable.
func (a *Archive) Upload(ctx context.Context, snap memory.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("%s%s.json", a.prefix, a.clock().Format("20060102T150405Z"))
	if _, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &a.bucket, Key: &key}); err == nil {
		return "", fmt.Errorf("archive %s already exists", key)
	}
	ct := contentType
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &ct,
	}); err != nil {
		return "", fmt.Errorf("put archive: %w", err)
	}
	return key, nil
}

// Download fetches and decodes the snapshot stored under key.
func (a *Archive) Download(ctx context.Context, key string) (memory.Snapshot, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &a.bucket, Key: &key})
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("get archive: %w", err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("read archive: %w", err)
	}
	snap := memory.New()
	if err := json.Unmarshal(data, &snap); err != nil {
		return memory.Snapshot{}, fmt.Errorf("decode archive: %w", err)
	}
	return snap, nil
}

// List returns archived keys under the configured prefix, sorted ascending.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &a.bucket,
			Prefix:            &a.prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list archives: %w", err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(keys)
	return keys, nil
}
