package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tanq16/fetcher/internal/utils"
)

// Scheduler runs many FetchJobs over a fixed pool of workers. Each job goes
// through its downloader's validate, build and download steps.
type Scheduler struct {
	Registry map[string]utils.Downloader
	Workers  int
	// NewTracker, when set, gives each built job its progress tracker.
	NewTracker func(job *utils.FetchJob) utils.ProgressTracker
	// OnDone, when set, is called from the worker once a job has an outcome.
	OnDone func(job *utils.FetchJob, outcome utils.Outcome)
}

type indexedJob struct {
	index int
	job   utils.FetchJob
}

// Run executes every job exactly once and returns outcomes in job order.
func (s *Scheduler) Run(ctx context.Context, jobs []utils.FetchJob) []utils.Outcome {
	outcomes := make([]utils.Outcome, len(jobs))
	numWorkers := min(max(s.Workers, 1), max(len(jobs), 1))

	jobCh := make(chan indexedJob, len(jobs))
	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		jobCh <- indexedJob{index: i, job: job}
	}
	close(jobCh)

	var wg sync.WaitGroup
	for i := range numWorkers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for item := range jobCh {
				job := item.job
				outcome := s.processJob(ctx, workerID, &job)
				outcomes[item.index] = outcome
				if s.OnDone != nil {
					s.OnDone(&job, outcome)
				}
			}
		}(i)
	}
	wg.Wait()
	return outcomes
}

func (s *Scheduler) processJob(ctx context.Context, workerID int, job *utils.FetchJob) utils.Outcome {
	logger := utils.GetLogger("scheduler").With().Str("job", job.ID).Int("worker", workerID).Logger()
	if err := ctx.Err(); err != nil {
		return utils.FailureOutcome(fmt.Sprintf("job cancelled: %v", err))
	}
	downloader, exists := s.Registry[job.JobType]
	if !exists {
		logger.Error().Msgf("Unknown job type %s", job.JobType)
		return utils.FailureOutcome(fmt.Sprintf("unknown job type: %s", job.JobType))
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}

	logger.Debug().Msgf("Validating %s job", job.JobType)
	if err := downloader.ValidateJob(job); err != nil {
		logger.Error().Err(err).Msg("Validation failed")
		return utils.FailureOutcome(fmt.Sprintf("validation failed: %v", err))
	}
	logger.Debug().Msgf("Building %s job", job.JobType)
	if err := downloader.BuildJob(ctx, job); err != nil {
		logger.Error().Err(err).Msg("Build failed")
		return utils.FailureOutcome(fmt.Sprintf("build failed: %v", err))
	}
	if s.NewTracker != nil {
		job.Tracker = s.NewTracker(job)
	}

	logger.Info().Msgf("Downloading %s", job.OutputPath)
	outcome := downloader.Download(ctx, job)
	if outcome.Succeeded() {
		logger.Info().Msgf("Completed %s", job.OutputPath)
	} else {
		logger.Error().Msgf("Failed %s: %s", job.OutputPath, outcome.Reason)
	}
	return outcome
}
