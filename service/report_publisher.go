package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/config"
	"github.com/ludo-technologies/fixeval/internal/version"
)

// Environment variables read for static object storage credentials. When unset the
// default AWS credential chain is used.
const (
	EnvPublishAccessKey = "FIXEVAL_PUBLISH_ACCESS_KEY"
	EnvPublishSecretKey = "FIXEVAL_PUBLISH_SECRET_KEY"
)

// ObjectPutter is the subset of the S3 client used for publishing
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportPublisher uploads rendered report files to an S3-compatible bucket
type ReportPublisher struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// NewReportPublisher wraps an existing client
func NewReportPublisher(client ObjectPutter, bucket, prefix string, logger *slog.Logger) *ReportPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportPublisher{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// NewS3Publisher builds a publisher from configuration. A custom endpoint switches to
// path-style addressing for MinIO and similar servers.
func NewS3Publisher(ctx context.Context, cfg config.PublishConfig, logger *slog.Logger) (*ReportPublisher, error) {
	if cfg.Bucket == "" {
		return nil, domain.NewConfigError("publish.bucket is required", nil)
	}
	region := cfg.Region
	if region == "" {
		region = config.DefaultPublishRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithAppID(version.AppID()),
	}
	access, secret := os.Getenv(EnvPublishAccessKey), os.Getenv(EnvPublishSecretKey)
	if access != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewReportPublisher(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// Publish uploads every file and returns their s3:// references in input order.
// It stops at the first failure.
func (p *ReportPublisher) Publish(ctx context.Context, model *domain.ReportModel, paths []string) ([]string, error) {
	refs := make([]string, 0, len(paths))
	for _, file := range paths {
		data, err := os.ReadFile(file)
		if err != nil {
			return refs, fmt.Errorf("read report %s: %w", file, err)
		}
		key := p.ObjectKey(model, file)
		_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentTypeFor(file)),
		})
		if err != nil {
			return refs, fmt.Errorf("upload %s: %w", key, err)
		}
		ref := fmt.Sprintf("s3://%s/%s", p.bucket, key)
		p.logger.Info("report published", "ref", ref)
		refs = append(refs, ref)
	}
	return refs, nil
}

// ObjectKey returns <prefix>/<repository>/<file name>
func (p *ReportPublisher) ObjectKey(model *domain.ReportModel, file string) string {
	repo := "unknown"
	if model != nil && model.Repository != "" {
		repo = strings.Trim(model.Repository, "/")
	}
	return path.Join(strings.Trim(p.prefix, "/"), repo, filepath.Base(file))
}

func contentTypeFor(file string) string {
	ext := filepath.Ext(file)
	switch ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
