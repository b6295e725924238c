package fetchhttp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

const SingleStreamTier = "single-stream"

// Tier is one chunked attempt over the whole file.
type Tier struct {
	Name   string
	Chunks int
}

var DefaultTiers = []Tier{
	{Name: "accelerated", Chunks: 6},
	{Name: "standard", Chunks: 4},
}

type Options struct {
	Tiers          []Tier
	StreamAttempts int
	BackoffBase    time.Duration
	ProbeTimeout   time.Duration
	ChunkTimeout   time.Duration
	StallTimeout   time.Duration
}

func DefaultOptions() Options {
	return Options{
		Tiers:          DefaultTiers,
		StreamAttempts: 3,
		BackoffBase:    time.Second,
		ProbeTimeout:   utils.DefaultProbeTimeout,
		ChunkTimeout:   utils.DefaultChunkTimeout,
		StallTimeout:   utils.DefaultStallTimeout,
	}
}

// BackoffDelay is the wait after failed single-stream attempt n (1-based):
// base * 2^n.
func BackoffDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base * time.Duration(int64(1)<<attempt)
}

// Pipeline resolves one target through the chunked tiers and then the
// single-stream tier with retries.
type Pipeline struct {
	client    utils.HTTPDoer
	userAgent string
	opts      Options
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewPipeline(client utils.HTTPDoer, userAgent string, opts Options) *Pipeline {
	defaults := DefaultOptions()
	if opts.Tiers == nil {
		opts.Tiers = defaults.Tiers
	}
	if opts.StreamAttempts < 1 {
		opts.StreamAttempts = defaults.StreamAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaults.BackoffBase
	}
	return &Pipeline{client: client, userAgent: userAgent, opts: opts, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run downloads target and always returns an Outcome. The tracker sees the
// whole lifecycle, ending with exactly one Finish call.
func (p *Pipeline) Run(ctx context.Context, target utils.DownloadTarget, tracker utils.ProgressTracker) utils.Outcome {
	if tracker == nil {
		tracker = utils.NopTracker{}
	}
	outcome := p.run(ctx, target, tracker)
	tracker.Finish(outcome)
	return outcome
}

func (p *Pipeline) run(ctx context.Context, target utils.DownloadTarget, tracker utils.ProgressTracker) utils.Outcome {
	meta := ProbeContent(ctx, p.client, target.URL, p.opts.ProbeTimeout)
	tracker.Start(meta.TotalSize)
	if meta.TotalSize > 0 {
		log.Info().Str("op", "http/pipeline").Msgf("File size: %.1f MB", utils.ToMB(meta.TotalSize))
	} else {
		log.Info().Str("op", "http/pipeline").Msg("File size: unknown")
	}

	if meta.CanParallelize() {
		for _, tier := range p.opts.Tiers {
			size, err := p.runChunkedTier(ctx, tier, meta, target, tracker)
			if err == nil {
				log.Info().Str("op", "http/pipeline").Msgf("Download completed with %s tier", tier.Name)
				return utils.SuccessOutcome(target.OutputPath, size, tier.Name)
			}
			if IsDiskFailure(err) || ctx.Err() != nil {
				log.Error().Str("op", "http/pipeline").Err(err).Msgf("%s tier failed", tier.Name)
				return utils.FailureOutcome(err.Error())
			}
			log.Warn().Str("op", "http/pipeline").Err(err).Msgf("%s tier failed, falling back", tier.Name)
		}
	} else {
		log.Info().Str("op", "http/pipeline").Msg("Range requests not usable, using single stream")
	}

	size, err := p.runSingleStream(ctx, meta, target, tracker)
	if err != nil {
		log.Error().Str("op", "http/pipeline").Err(err).Msg("Download failed")
		return utils.FailureOutcome(err.Error())
	}
	return utils.SuccessOutcome(target.OutputPath, size, SingleStreamTier)
}

func (p *Pipeline) runChunkedTier(ctx context.Context, tier Tier, meta utils.ContentMeta, target utils.DownloadTarget, tracker utils.ProgressTracker) (int64, error) {
	plan, err := Plan(meta.TotalSize, tier.Chunks)
	if err != nil {
		return 0, err
	}
	tracker.BeginTier(tier.Name, meta.TotalSize)
	log.Info().Str("op", "http/pipeline").Msgf("Trying %s tier with %d connections", tier.Name, tier.Chunks)
	fetcher := &ChunkFetcher{
		Client:    p.client,
		URL:       target.URL,
		Timeout:   p.opts.ChunkTimeout,
		UserAgent: p.userAgent,
		Progress:  tracker,
	}
	set, err := RunTier(ctx, fetcher, plan)
	if err != nil {
		return 0, err
	}
	return Assemble(set, plan, target.OutputPath)
}

func (p *Pipeline) runSingleStream(ctx context.Context, meta utils.ContentMeta, target utils.DownloadTarget, tracker utils.ProgressTracker) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.StreamAttempts; attempt++ {
		tracker.BeginTier(SingleStreamTier, meta.TotalSize)
		log.Info().Str("op", "http/pipeline").Msgf("Single stream attempt %d/%d", attempt, p.opts.StreamAttempts)
		size, err := PerformSimpleDownload(ctx, p.client, target, tracker, p.opts.StallTimeout)
		if err == nil {
			return size, nil
		}
		if IsDiskFailure(err) {
			return 0, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("download cancelled: %w", errors.Join(ctxErr, err))
		}
		lastErr = err
		log.Warn().Str("op", "http/pipeline").Err(err).Msgf("Attempt %d failed", attempt)
		if attempt == p.opts.StreamAttempts {
			break
		}
		wait := BackoffDelay(attempt, p.opts.BackoffBase)
		log.Info().Str("op", "http/pipeline").Msgf("Retrying in %s", wait)
		if err := p.sleep(ctx, wait); err != nil {
			return 0, fmt.Errorf("download cancelled: %w", err)
		}
	}
	return 0, &RetryError{Attempts: p.opts.StreamAttempts, Last: lastErr}
}
