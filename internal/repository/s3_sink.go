package repository

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // S3-compatible endpoint; enables path-style addressing
	AccessKeyID     string
	SecretAccessKey string
	UploadTimeout   time.Duration
}

// Uploader is the part of manager.Uploader the sink uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads result documents to a bucket.
type S3Sink struct {
	uploader Uploader
	cfg      S3Config
	logger   *slog.Logger
}

// NewS3Sink builds an uploader from the default AWS credential chain, or from
// static keys when both are configured.
func NewS3Sink(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, common.NewAppError(common.CodeConfig, "S3 bucket name not set", common.ErrInvalidInput)
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storageError("load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3SinkWithUploader(manager.NewUploader(client), cfg, logger), nil
}

func NewS3SinkWithUploader(u Uploader, cfg S3Config, logger *slog.Logger) *S3Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	return &S3Sink{uploader: u, cfg: cfg, logger: logger}
}

func (s *S3Sink) Name() string { return "s3" }

// SaveBatch uploads to <prefix>runs/<run_id>.json.
func (s *S3Sink) SaveBatch(ctx context.Context, b *entity.BatchResult) error {
	data, err := Encode(b, false)
	if err != nil {
		return err
	}
	id := b.Metadata.RunID
	if id == "" {
		id = b.Metadata.ProcessingDate.UTC().Format("20060102T150405Z")
	}
	return s.put(ctx, s.key("runs", id+".json"), data)
}

// SaveImage uploads to <prefix>images/<name>-<timestamp>.json.
func (s *S3Sink) SaveImage(ctx context.Context, r entity.ExtractionResult) error {
	data, err := Encode(r, false)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(r.FilePath), filepath.Ext(r.FilePath))
	return s.put(ctx, s.key("images", fmt.Sprintf("%s-%s.json", base, r.Timestamp.UTC().Format("20060102T150405Z"))), data)
}

func (s *S3Sink) key(parts ...string) string {
	return strings.TrimPrefix(path.Join(append([]string{s.cfg.Prefix}, parts...)...), "/")
}

func (s *S3Sink) put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error("s3 upload failed", "bucket", s.cfg.Bucket, "key", key, "error", err)
		return storageError("s3 upload", err)
	}
	s.logger.Info("results uploaded", "bucket", s.cfg.Bucket, "key", key, "bytes", len(data))
	return nil
}
