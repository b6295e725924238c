package fetchhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/fetcher/internal/progress"
	"github.com/tanq16/fetcher/internal/utils"
)

func newTestPipeline(t *testing.T) (*Pipeline, *[]time.Duration) {
	t.Helper()
	client := utils.NewFetchHTTPClient(utils.HTTPClientConfig{})
	p := NewPipeline(client, client.UserAgent(), Options{
		ProbeTimeout: 2 * time.Second,
		ChunkTimeout: 5 * time.Second,
		StallTimeout: 5 * time.Second,
	})
	var waits []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return p, &waits
}

func TestBackoffDelays(t *testing.T) {
	assert.Equal(t, 2*time.Second, BackoffDelay(1, time.Second))
	assert.Equal(t, 4*time.Second, BackoffDelay(2, time.Second))
	assert.Equal(t, 8*time.Second, BackoffDelay(3, time.Second))
}

func TestPipelineAcceleratedTierSucceeds(t *testing.T) {
	data := randomPayload(t, 2*1024*1024)
	srv, _ := rangeServer(t, data)
	p, waits := newTestPipeline(t)
	reporter := progress.NewReporter(nil, time.Hour)
	dest := filepath.Join(t.TempDir(), "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, reporter)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, "accelerated", outcome.Tier)
	assert.Equal(t, int64(len(data)), outcome.SizeBytes)
	assert.Equal(t, dest, outcome.Path)
	assert.Empty(t, *waits)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 100, reporter.Snapshot().Percent)
	assert.Equal(t, utils.StatusSuccess, reporter.Snapshot().Status)
}

func TestPipelineFallsBackToStandardTier(t *testing.T) {
	data := randomPayload(t, 2400)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 400 is where the second of six chunks starts
		if r.Header.Get("Range") == "bytes=400-799" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		http.ServeContent(w, r, "f", time.Time{}, bytesReader(data))
	}))
	defer srv.Close()
	p, _ := newTestPipeline(t)
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, "standard", outcome.Tier)
	assert.Equal(t, []string{"accelerated", "standard"}, tracker.tiers)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPipelineSkipsParallelTiersWithoutRanges(t *testing.T) {
	data := randomPayload(t, 10*1024*1024)
	srv, gets := plainServer(t, data)
	p, waits := newTestPipeline(t)
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, SingleStreamTier, outcome.Tier)
	assert.Equal(t, []string{SingleStreamTier}, tracker.tiers)
	assert.Equal(t, int64(len(data)), tracker.started)
	assert.Equal(t, int64(len(data)), tracker.added)
	// one probe GET plus one download GET
	assert.Equal(t, int64(2), gets.Load())
	assert.Empty(t, *waits)
	require.Len(t, tracker.finished, 1)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPipelineExhaustsRetriesOnNetworkErrors(t *testing.T) {
	p, waits := newTestPipeline(t)
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: deadURL(t), OutputPath: dest}, tracker)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, utils.StatusError, outcome.Status)
	assert.Contains(t, outcome.Reason, "download failed after 3 attempts")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
	assert.Equal(t, []string{SingleStreamTier, SingleStreamTier, SingleStreamTier}, tracker.tiers)
	require.Len(t, tracker.finished, 1)
	assert.Equal(t, outcome, tracker.finished[0])
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, utils.TempPath(dest))
}

func TestSingleStreamErrorMatchesRetriesExhausted(t *testing.T) {
	p, _ := newTestPipeline(t)
	target := utils.DownloadTarget{URL: deadURL(t), OutputPath: filepath.Join(t.TempDir(), "f")}

	_, err := p.runSingleStream(context.Background(), utils.ContentMeta{}, target, utils.NopTracker{})
	require.ErrorIs(t, err, utils.ErrRetriesExhausted)
	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 3, retryErr.Attempts)
}

func TestPipelineRetriesSingleStreamUntilSuccess(t *testing.T) {
	data := randomPayload(t, 4096)
	var downloads atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.Header.Get("Range") == "" {
			if downloads.Add(1) <= 2 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Write(data)
	}))
	defer srv.Close()
	p, waits := newTestPipeline(t)
	dest := filepath.Join(t.TempDir(), "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, nil)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
	assert.Equal(t, int64(3), downloads.Load())
}

func TestPipelineDiskFailureIsTerminal(t *testing.T) {
	srv, requests := rangeServer(t, randomPayload(t, 60000))
	p, waits := newTestPipeline(t)
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "no-such-dir", "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker)
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Reason, "no-such-dir")
	assert.Equal(t, []string{"accelerated"}, tracker.tiers)
	assert.Empty(t, *waits)
	// probe GET + HEAD, then six chunk requests
	assert.Equal(t, int64(8), requests.Load())
}

func TestSingleStreamWriteErrorIsNotRetried(t *testing.T) {
	srv, gets := plainServer(t, randomPayload(t, 1000))
	p, waits := newTestPipeline(t)
	dest := filepath.Join(t.TempDir(), "no-such-dir", "file.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, nil)
	assert.False(t, outcome.Succeeded())
	assert.Empty(t, *waits)
	assert.Equal(t, int64(2), gets.Load())
}

func TestPipelineStopsWhenCancelledDuringBackoff(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	tracker := &countingTracker{}

	outcome := p.Run(ctx, utils.DownloadTarget{URL: deadURL(t), OutputPath: filepath.Join(t.TempDir(), "f")}, tracker)
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Reason, "cancelled")
	assert.Len(t, tracker.tiers, 1)
}

func TestPipelineSlowChunksStayInAcceleratedTier(t *testing.T) {
	data := randomPayload(t, 3000)
	srv := trickleServer(t, data, 50*time.Millisecond, "")
	p, _ := newTestPipeline(t)
	p.opts.ChunkTimeout = 150 * time.Millisecond
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "slow.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, "accelerated", outcome.Tier)
	assert.Equal(t, []string{"accelerated"}, tracker.tiers)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPipelineStalledChunkFallsBack(t *testing.T) {
	data := randomPayload(t, 3000)
	// second of six 500-byte chunks
	srv := trickleServer(t, data, 10*time.Millisecond, "bytes=500-999")
	p, _ := newTestPipeline(t)
	p.opts.ChunkTimeout = 200 * time.Millisecond
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "stalled.bin")

	outcome := p.Run(context.Background(), utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker)
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, "standard", outcome.Tier)
	assert.Equal(t, []string{"accelerated", "standard"}, tracker.tiers)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
