package utils

import (
	"context"
	"time"
)

type Downloader interface {
	ValidateJob(job *FetchJob) error
	BuildJob(ctx context.Context, job *FetchJob) error
	Download(ctx context.Context, job *FetchJob) Outcome
}

// FetchJob is one download request as handled by the CLI and job scheduler.
type FetchJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	ProgressFile     string
	Tracker          ProgressTracker
	Metadata         map[string]any
	HTTPClientConfig HTTPClientConfig
}

// DownloadTarget is the resolved source URL and destination path of one download.
type DownloadTarget struct {
	URL        string
	OutputPath string
}

// ContentMeta is what the range probe learned about the remote resource.
// TotalSize is 0 when the server did not report it.
type ContentMeta struct {
	TotalSize      int64
	RangeSupported bool
}

// CanParallelize reports whether chunked tiers may be attempted.
func (m ContentMeta) CanParallelize() bool {
	return m.RangeSupported && m.TotalSize > 0
}

// ChunkSpec is one inclusive byte range of a plan.
type ChunkSpec struct {
	Index int
	Start int64
	End   int64
}

func (c ChunkSpec) Size() int64 {
	return c.End - c.Start + 1
}

// ChunkResult is the outcome of fetching one ChunkSpec. Data is nil on failure.
type ChunkResult struct {
	Index    int
	Data     []byte
	Err      error
	Duration time.Duration
}

func (r ChunkResult) OK() bool {
	return r.Data != nil
}

// ChunkSet maps chunk index to payload for one tier attempt.
type ChunkSet map[int][]byte

const (
	StatusStarting    = "starting"
	StatusDownloading = "downloading"
	StatusSuccess     = "success"
	StatusError       = "error"
)

// Outcome is the terminal result of resolving one DownloadTarget.
type Outcome struct {
	Status    string `json:"status"`
	Path      string `json:"path,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Tier      string `json:"tier,omitempty"`
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

func SuccessOutcome(path string, size int64, tier string) Outcome {
	return Outcome{Status: StatusSuccess, Path: path, SizeBytes: size, Tier: tier}
}

func FailureOutcome(reason string) Outcome {
	return Outcome{Status: StatusError, Reason: reason}
}

type DownloadEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	URL        string `yaml:"link"`
}

// ProgressTracker receives byte counts and lifecycle events for one target.
type ProgressTracker interface {
	Start(total int64)
	BeginTier(name string, total int64)
	Add(n int64)
	Finish(outcome Outcome)
}

type NopTracker struct{}

func (NopTracker) Start(int64)             {}
func (NopTracker) BeginTier(string, int64) {}
func (NopTracker) Add(int64)               {}
func (NopTracker) Finish(Outcome)          {}
