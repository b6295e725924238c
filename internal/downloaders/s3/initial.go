package s3

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	fetchhttp "github.com/tanq16/fetcher/internal/downloaders/http"
	"github.com/tanq16/fetcher/internal/utils"
)

// S3Downloader resolves s3://bucket/key jobs to presigned HTTPS URLs and
// hands them to the HTTP engine.
type S3Downloader struct {
	HTTP    *fetchhttp.HTTPDownloader
	Profile string
	Expiry  time.Duration

	newPresigner func(ctx context.Context, profile string) (objectPresigner, error)
	once         sync.Once
}

func (d *S3Downloader) ValidateJob(job *utils.FetchJob) error {
	bucket, key, err := parseS3URL(job.URL)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("s3://%s/%s is not an object key", bucket, key)
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	log.Info().Str("op", "s3/initial").Msgf("job validated for s3://%s/%s", bucket, key)
	return nil
}

func (d *S3Downloader) BuildJob(ctx context.Context, job *utils.FetchJob) error {
	bucket, _ := job.Metadata["bucket"].(string)
	key, _ := job.Metadata["key"].(string)
	profile := d.Profile
	if p, ok := job.Metadata["profile"].(string); ok && p != "" {
		profile = p
	}
	newPresigner := d.newPresigner
	if newPresigner == nil {
		newPresigner = loadPresigner
	}
	presigner, err := newPresigner(ctx, profile)
	if err != nil {
		return fmt.Errorf("error creating S3 client: %v", err)
	}
	expiry := d.Expiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	presignedURL, err := presignObject(ctx, presigner, bucket, key, expiry)
	if err != nil {
		return err
	}
	job.Metadata["presignedURL"] = presignedURL

	if job.OutputPath == "" {
		job.OutputPath = objectName(key)
	}
	if _, err := os.Stat(job.OutputPath); err == nil {
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}
	log.Info().Str("op", "s3/initial").Msgf("job built for s3://%s/%s", bucket, key)
	return nil
}

func (d *S3Downloader) Download(ctx context.Context, job *utils.FetchJob) utils.Outcome {
	presignedURL, ok := job.Metadata["presignedURL"].(string)
	if !ok || presignedURL == "" {
		return utils.FailureOutcome("s3 job was not built")
	}
	httpJob := *job
	httpJob.URL = presignedURL
	return d.httpDownloader().Download(ctx, &httpJob)
}

func (d *S3Downloader) httpDownloader() *fetchhttp.HTTPDownloader {
	d.once.Do(func() {
		if d.HTTP == nil {
			d.HTTP = &fetchhttp.HTTPDownloader{}
		}
	})
	return d.HTTP
}
