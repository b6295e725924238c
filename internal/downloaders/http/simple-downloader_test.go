package fetchhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/fetcher/internal/utils"
)

func TestSimpleDownloadStallIsCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2000")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 1000))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	dest := filepath.Join(t.TempDir(), "stalled.bin")

	target := utils.DownloadTarget{URL: srv.URL, OutputPath: dest}
	_, err := PerformSimpleDownload(context.Background(), http.DefaultClient, target, nil, 100*time.Millisecond)
	require.ErrorIs(t, err, errStalled)
	assert.False(t, IsDiskFailure(err))
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, utils.TempPath(dest))
}

func TestSimpleDownloadTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2000")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 500))
	}))
	defer srv.Close()
	dest := filepath.Join(t.TempDir(), "short.bin")

	target := utils.DownloadTarget{URL: srv.URL, OutputPath: dest}
	_, err := PerformSimpleDownload(context.Background(), http.DefaultClient, target, nil, time.Second)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestSimpleDownloadWritesFile(t *testing.T) {
	data := randomPayload(t, 5*1024*1024+17)
	srv, _ := plainServer(t, data)
	dest := filepath.Join(t.TempDir(), "out.bin")
	tracker := &countingTracker{}

	n, err := PerformSimpleDownload(context.Background(), http.DefaultClient, utils.DownloadTarget{URL: srv.URL, OutputPath: dest}, tracker, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, int64(len(data)), tracker.added)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
