package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	fetchhttp "github.com/tanq16/fetcher/internal/downloaders/http"
	"github.com/tanq16/fetcher/internal/downloaders/s3"
	"github.com/tanq16/fetcher/internal/output"
	"github.com/tanq16/fetcher/internal/progress"
	"github.com/tanq16/fetcher/internal/scheduler"
	"github.com/tanq16/fetcher/internal/utils"
)

func pipelineOptions() fetchhttp.Options {
	return fetchhttp.Options{
		Tiers: []fetchhttp.Tier{
			{Name: "accelerated", Chunks: appConfig.AcceleratedConnections},
			{Name: "standard", Chunks: appConfig.StandardConnections},
		},
		StreamAttempts: appConfig.StreamAttempts,
		BackoffBase:    appConfig.BackoffBase,
		ProbeTimeout:   appConfig.ProbeTimeout,
		ChunkTimeout:   appConfig.ChunkTimeout,
		StallTimeout:   appConfig.StallTimeout,
	}
}

func newRegistry(profile string) map[string]utils.Downloader {
	httpDownloader := &fetchhttp.HTTPDownloader{Client: sharedClient, Options: pipelineOptions()}
	return map[string]utils.Downloader{
		"http": httpDownloader,
		"s3":   &s3.S3Downloader{HTTP: httpDownloader, Profile: profile},
	}
}

func detectJobType(link string) string {
	if strings.HasPrefix(link, "s3://") {
		return "s3"
	}
	return "http"
}

func newJob(jobType, link, outputPath string) utils.FetchJob {
	return utils.FetchJob{
		JobType:          jobType,
		URL:              link,
		OutputPath:       outputPath,
		ProgressFile:     appConfig.ProgressFile,
		HTTPClientConfig: globalHTTPConfig,
		Metadata:         make(map[string]any),
	}
}

// progressFileFor gives every job of a multi-job run its own status file.
func progressFileFor(base, jobID string, shared bool) string {
	if base == "" || !shared {
		return base
	}
	ext := filepath.Ext(base)
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), short, ext)
}

func trackerFactory(shared, withBar bool) func(job *utils.FetchJob) utils.ProgressTracker {
	return func(job *utils.FetchJob) utils.ProgressTracker {
		var sinks progress.MultiSink
		if path := progressFileFor(job.ProgressFile, job.ID, shared); path != "" {
			sinks = append(sinks, progress.FileSink{Path: path})
		}
		if withBar {
			sinks = append(sinks, progress.NewBarSink(os.Stderr, filepath.Base(job.OutputPath)))
		}
		return progress.NewReporter(sinks, appConfig.ProgressInterval)
	}
}

// runJobs downloads jobs over the configured worker pool and returns their
// outcomes in order.
func runJobs(ctx context.Context, jobs []utils.FetchJob, profile string) []utils.Outcome {
	single := len(jobs) == 1
	s := &scheduler.Scheduler{
		Registry:   newRegistry(profile),
		Workers:    appConfig.Workers,
		NewTracker: trackerFactory(!single, single && !noProgress && output.IsTerminal(os.Stderr)),
	}
	if !single {
		s.OnDone = func(job *utils.FetchJob, outcome utils.Outcome) {
			output.PrintOutcome(job.URL, outcome)
		}
	}
	return s.Run(ctx, jobs)
}

func printOutcomes(outcomes []utils.Outcome) {
	encoder := json.NewEncoder(os.Stdout)
	if len(outcomes) == 1 {
		encoder.Encode(outcomes[0])
		return
	}
	encoder.Encode(outcomes)
}

func exitOnFailure(outcomes []utils.Outcome) {
	for _, o := range outcomes {
		if !o.Succeeded() {
			os.Exit(1)
		}
	}
}
