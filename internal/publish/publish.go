package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"featmill/internal/faults"
	"featmill/internal/fileutil"
	"featmill/internal/logging"
	"featmill/internal/normalize"
	"featmill/internal/stats"
	"featmill/internal/textutil"
)

// Artifact is one file selected for upload.
type Artifact struct {
	Name     string
	Path     string
	Required bool
}

// Report summarizes an upload.
type Report struct {
	Keys    []string
	Skipped []string
	Bytes   int64
}

// Publisher uploads corpus artifacts to one bucket.
type Publisher struct {
	api    API
	bucket string
	prefix string
	logger *slog.Logger
}

// New returns a Publisher writing to bucket under prefix.
func New(api API, bucket, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		api:    api,
		bucket: bucket,
		prefix: textutil.SanitizePrefix(prefix),
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// Artifacts lists the fixed-name files of dir for a corpus normalized with
// kind. The statistics and the parameter pair of kind are required; the
// keep-index and any other parameter files are optional.
func Artifacts(dir string, kind normalize.Kind) []Artifact {
	required := map[string]bool{
		stats.MinFile:  true,
		stats.MaxFile:  true,
		stats.MeanFile: true,
		stats.StdFile:  true,
	}
	for _, name := range normalize.FilesFor(kind) {
		required[name] = true
	}
	names := []string{
		stats.MinFile, stats.MaxFile, stats.MeanFile, stats.StdFile,
		normalize.MinNormFile, normalize.MaxNormFile, normalize.RangeNormFile,
		normalize.MeanNormFile, normalize.StdNormFile,
		stats.KeepIndexFile,
	}
	artifacts := make([]Artifact, 0, len(names))
	for _, name := range names {
		artifacts = append(artifacts, Artifact{Name: name, Path: filepath.Join(dir, name), Required: required[name]})
	}
	return artifacts
}

// Key returns the object key for an artifact of job.
func (p *Publisher) Key(job, name string) string {
	job = textutil.SanitizeToken(job)
	if p.prefix == "" {
		return path.Join(job, name)
	}
	return path.Join(p.prefix, job, name)
}

// Check verifies the bucket is reachable with the configured credentials.
func (p *Publisher) Check(ctx context.Context) error {
	if _, err := p.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)}); err != nil {
		return faults.Wrap(faults.ErrIO, "publish", "head bucket", p.bucket, err)
	}
	return nil
}

// Publish uploads the artifacts of job found in dir. Every required file is
// checked before the first upload so a partial corpus is never published.
func (p *Publisher) Publish(ctx context.Context, job, dir string, kind normalize.Kind) (Report, error) {
	var report Report
	artifacts := Artifacts(dir, kind)

	present := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		ok, err := fileutil.Exists(a.Path)
		if err != nil {
			return report, faults.Wrap(faults.ErrIO, "publish", "stat", a.Path, err)
		}
		switch {
		case ok:
			present = append(present, a)
		case a.Required:
			return report, faults.Wrap(faults.ErrIO, "publish", "collect",
				fmt.Sprintf("required artifact %s missing in %s", a.Name, dir), nil)
		default:
			report.Skipped = append(report.Skipped, a.Name)
		}
	}

	for _, a := range present {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return report, faults.Wrap(faults.ErrIO, "publish", "read", a.Path, err)
		}
		key := p.Key(job, a.Name)
		_, err = p.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/octet-stream"),
		})
		if err != nil {
			return report, faults.Wrap(faults.ErrIO, "publish", "put object", key, err)
		}
		report.Keys = append(report.Keys, key)
		report.Bytes += int64(len(data))
		p.logger.Debug("artifact uploaded", logging.String("key", key), logging.Int64("size_bytes", int64(len(data))))
	}

	p.logger.Info("artifacts published",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.String(logging.FieldJob, job),
		logging.String("bucket", p.bucket),
		logging.Int("objects", len(report.Keys)),
		logging.Int64("uploaded_bytes", report.Bytes),
	)
	return report, nil
}
