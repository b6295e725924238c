package fetchhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/fetcher/internal/utils"
)

func TestValidateJob(t *testing.T) {
	d := &HTTPDownloader{}
	assert.NoError(t, d.ValidateJob(&utils.FetchJob{URL: "https://example.com/a.bin"}))
	assert.ErrorContains(t, d.ValidateJob(&utils.FetchJob{URL: "ftp://example.com/a.bin"}), "unsupported scheme")
	assert.ErrorContains(t, d.ValidateJob(&utils.FetchJob{URL: "http:///a.bin"}), "no host")
	assert.ErrorContains(t, d.ValidateJob(&utils.FetchJob{
		URL:        "https://example.com/a.bin",
		OutputPath: filepath.Join(t.TempDir(), "missing", "a.bin"),
	}), "output directory does not exist")
}

func TestBuildJobNamesOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/named" {
			w.Header().Set("Content-Disposition", `attachment; filename="report 2024.pdf"`)
		}
	}))
	defer srv.Close()
	d := &HTTPDownloader{Client: utils.NewFetchHTTPClient(utils.HTTPClientConfig{})}

	job := &utils.FetchJob{URL: srv.URL + "/named"}
	require.NoError(t, d.BuildJob(context.Background(), job))
	assert.Equal(t, "report 2024.pdf", job.OutputPath)

	job = &utils.FetchJob{URL: srv.URL + "/files/archive.tar.gz?sig=abc"}
	require.NoError(t, d.BuildJob(context.Background(), job))
	assert.Equal(t, "archive.tar.gz", job.OutputPath)

	job = &utils.FetchJob{URL: srv.URL + "/"}
	require.NoError(t, d.BuildJob(context.Background(), job))
	assert.Equal(t, "download", job.OutputPath)
}

func TestBuildJobRenewsExistingOutput(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))
	d := &HTTPDownloader{}

	job := &utils.FetchJob{URL: "http://127.0.0.1:1/data.csv", OutputPath: existing}
	require.NoError(t, d.BuildJob(context.Background(), job))
	assert.Equal(t, filepath.Join(filepath.Dir(existing), "data-(1).csv"), job.OutputPath)
}

func TestHTTPDownloaderDownload(t *testing.T) {
	data := randomPayload(t, 300000)
	srv, _ := rangeServer(t, data)
	tracker := &countingTracker{}
	dest := filepath.Join(t.TempDir(), "payload.bin")
	d := &HTTPDownloader{Options: Options{Tiers: []Tier{{Name: "standard", Chunks: 4}}}}

	outcome := d.Download(context.Background(), &utils.FetchJob{URL: srv.URL, OutputPath: dest, Tracker: tracker})
	require.True(t, outcome.Succeeded(), outcome.Reason)
	assert.Equal(t, "standard", outcome.Tier)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestClientBuiltOnce(t *testing.T) {
	d := &HTTPDownloader{}
	job := &utils.FetchJob{HTTPClientConfig: utils.HTTPClientConfig{}}
	first := d.client(job)
	require.NotNil(t, first)
	assert.Same(t, first, d.client(job))
	assert.Same(t, first, d.Client)

	shared := utils.NewFetchHTTPClient(utils.HTTPClientConfig{})
	d = &HTTPDownloader{Client: shared}
	assert.Same(t, shared, d.client(job))
}
