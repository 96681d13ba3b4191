package report

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/runner"
)

// S3Sink uploads JSON run reports to S3-compatible object storage
type S3Sink struct {
	client *minio.Client
	bucket string
	prefix string
	logger *zap.SugaredLogger
}

// NewS3Sink creates a sink from report.s3 settings. The endpoint is
// host[:port] without a scheme.
func NewS3Sink(cfg am.S3Config) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.NewConfigError("report.s3.endpoint is required")
	}
	if strings.Contains(cfg.Endpoint, "://") {
		return nil, errors.NewConfigError("report.s3.endpoint must not include a scheme: %q", cfg.Endpoint)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.NewConfigError("report.s3.bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.WrapConfig(err, "failed to create object storage client")
	}

	return &S3Sink{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.ComponentLogger("report"),
	}, nil
}

// ObjectKey is where the report of run is stored:
// <prefix>/YYYY/MM/DD/<run id>.json
func (s *S3Sink) ObjectKey(run *runner.Run) string {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}
	day := run.StartedAt.UTC().Format("2006/01/02")
	return path.Join(s.prefix, day, id+".json")
}

// Upload stores the JSON report and returns its object key
func (s *S3Sink) Upload(ctx context.Context, run *runner.Run) (string, error) {
	data, err := Marshal(run)
	if err != nil {
		return "", err
	}

	key := s.ObjectKey(run)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload report to %s/%s", s.bucket, key)
	}

	logger.FromContext(ctx, s.logger).Infow("Uploaded run report",
		"bucket", s.bucket,
		"key", key,
		logger.FieldRunID, run.ID,
	)
	return key, nil
}
