package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kestrelflow/vecsink/model"
)

// s3API is the slice of the S3 client the connector drives. Tests swap in a
// fake.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config carries the settings for reading one bucket.
type S3Config struct {
	// AWSKeyID and AWSAccessKey are static credentials for the bucket.
	AWSKeyID     string
	AWSAccessKey string
	// BucketName is the bucket to list and download from.
	BucketName string
	// Prefix narrows listings to keys under it.
	Prefix string
	// Region defaults to us-east-1.
	Region string
	// Selector routes object attributes into file metadata. Selecting
	// "metadata" adds a HeadObject round-trip per listed object.
	Selector model.Selector
}

// S3Connector lists and downloads objects from an S3 bucket.
type S3Connector struct {
	cfg    S3Config
	client s3API
}

// NewS3Connector checks the static configuration and builds the SDK client.
func NewS3Connector(ctx context.Context, cfg S3Config) (*S3Connector, error) {
	if cfg.AWSKeyID == "" {
		return nil, errors.New("s3: aws key id is required")
	}
	if cfg.AWSAccessKey == "" {
		return nil, errors.New("s3: aws access key is required")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("s3: bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AWSKeyID, cfg.AWSAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Connector{cfg: cfg, client: s3.NewFromConfig(awsCfg)}, nil
}

func (c *S3Connector) Name() string { return "S3Connector" }

func (c *S3Connector) RequiredProperties() []string {
	return []string{"aws_key_id", "aws_access_key", "bucket_name"}
}

func (c *S3Connector) OptionalProperties() []string {
	return []string{"prefix"}
}

func (c *S3Connector) AvailableMetadata() []string {
	return []string{"key", "last_modified", "metadata"}
}

// Validate checks the selector only names available metadata and the bucket
// answers a head request with the configured credentials.
func (c *S3Connector) Validate(ctx context.Context) error {
	available := c.AvailableMetadata()
	for _, field := range c.cfg.Selector.ToMetadata {
		if !contains(available, field) {
			return fmt.Errorf("selector metadata %q is not available from %s", field, c.Name())
		}
	}
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.cfg.BucketName)}); err != nil {
		return &model.ConnectionError{Connector: c.Name(), Err: fmt.Errorf("bucket %q: %w", c.cfg.BucketName, err)}
	}
	return nil
}

// ListFull walks every object under the configured prefix.
func (c *S3Connector) ListFull(ctx context.Context, fn func(model.CloudFile) bool) error {
	if err := c.list(ctx, time.Time{}, fn); err != nil {
		return &model.ConnectionError{Connector: c.Name(), Err: err}
	}
	return nil
}

// ListDelta walks only objects modified after since.
func (c *S3Connector) ListDelta(ctx context.Context, since time.Time, fn func(model.CloudFile) bool) error {
	if err := c.list(ctx, since, fn); err != nil {
		return &model.ConnectionError{Connector: c.Name(), Err: err}
	}
	return nil
}

func (c *S3Connector) list(ctx context.Context, since time.Time, fn func(model.CloudFile) bool) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.cfg.BucketName)}
	if c.cfg.Prefix != "" {
		input.Prefix = aws.String(c.cfg.Prefix)
	}
	for {
		page, err := c.client.ListObjectsV2(ctx, input)
		if err != nil {
			return fmt.Errorf("list bucket %q: %w", c.cfg.BucketName, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			var modified time.Time
			if obj.LastModified != nil {
				modified = *obj.LastModified
			}
			if !since.IsZero() && !modified.After(since) {
				continue
			}
			file, err := c.cloudFile(ctx, *obj.Key, modified)
			if err != nil {
				return err
			}
			if !fn(file) {
				return nil
			}
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}

// cloudFile builds the listing entry for one object, selecting only the
// metadata fields the selector routes.
func (c *S3Connector) cloudFile(ctx context.Context, key string, modified time.Time) (model.CloudFile, error) {
	metadata := map[string]any{}
	if c.cfg.Selector.WantsMetadata("key") {
		metadata["key"] = key
	}
	if c.cfg.Selector.WantsMetadata("last_modified") {
		metadata["last_modified"] = modified.UTC().Format(time.RFC3339)
	}
	if c.cfg.Selector.WantsMetadata("metadata") {
		head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.cfg.BucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return model.CloudFile{}, fmt.Errorf("head object %q: %w", key, err)
		}
		for k, v := range head.Metadata {
			metadata[k] = v
		}
	}
	return model.CloudFile{ID: key, FileIdentifier: key, Metadata: metadata}, nil
}

// Download fetches file into a fresh temporary directory, hands it to fn,
// and removes the directory on return. fn's error comes back unchanged.
func (c *S3Connector) Download(ctx context.Context, file model.CloudFile, fn func(model.LocalFile) error) error {
	local, cleanup, err := c.fetch(ctx, file)
	if err != nil {
		return &model.ConnectionError{Connector: c.Name(), Err: err}
	}
	defer cleanup()
	return fn(local)
}

func (c *S3Connector) fetch(ctx context.Context, file model.CloudFile) (model.LocalFile, func(), error) {
	dir, err := os.MkdirTemp("", "s3-download-")
	if err != nil {
		return model.LocalFile{}, nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.FromSlash(file.FileIdentifier))
	if !strings.HasPrefix(path, dir+string(os.PathSeparator)) {
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("object key %q escapes the download directory", file.FileIdentifier)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("create download directory: %w", err)
	}

	obj, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.BucketName),
		Key:    aws.String(file.FileIdentifier),
	})
	if err != nil {
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("get object %q: %w", file.FileIdentifier, err)
	}
	defer obj.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("create local file: %w", err)
	}
	if _, err := io.Copy(out, obj.Body); err != nil {
		_ = out.Close()
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("write object %q: %w", file.FileIdentifier, err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return model.LocalFile{}, nil, fmt.Errorf("close local file: %w", err)
	}

	return model.LocalFile{
		ID:       file.ID,
		Path:     path,
		Metadata: model.CloneMetadata(file.Metadata),
	}, cleanup, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
