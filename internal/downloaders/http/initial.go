package fetchhttp

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

var filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// HTTPDownloader runs http and https jobs through the fallback pipeline.
// Client is shared by every job; when nil, one is built from the first
// job's client config and reused after that.
type HTTPDownloader struct {
	Client  *utils.FetchHTTPClient
	Options Options

	once sync.Once
}

func (d *HTTPDownloader) ValidateJob(job *utils.FetchJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL has no host: %s", job.URL)
	}
	if job.OutputPath != "" {
		dir := filepath.Dir(job.OutputPath)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}
	return nil
}

func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.FetchJob) error {
	if job.OutputPath == "" {
		job.OutputPath = fileNameFromServer(ctx, d.client(job), job.URL)
	}
	if job.OutputPath == "" {
		job.OutputPath = fileNameFromURL(job.URL)
	}
	if _, err := os.Stat(job.OutputPath); err == nil {
		renewed := utils.RenewOutputPath(job.OutputPath)
		log.Debug().Str("op", "http/initial").Msgf("%s exists, writing to %s", job.OutputPath, renewed)
		job.OutputPath = renewed
	}
	return nil
}

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.FetchJob) utils.Outcome {
	client := d.client(job)
	pipeline := NewPipeline(client, client.UserAgent(), d.Options)
	target := utils.DownloadTarget{URL: job.URL, OutputPath: job.OutputPath}
	return pipeline.Run(ctx, target, job.Tracker)
}

func (d *HTTPDownloader) client(job *utils.FetchJob) *utils.FetchHTTPClient {
	d.once.Do(func() {
		if d.Client == nil {
			d.Client = utils.NewFetchHTTPClient(job.HTTPClientConfig)
		}
	})
	return d.Client
}

func fileNameFromURL(link string) string {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return "download"
	}
	name := path.Base(parsedURL.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

// fileNameFromServer reads a Content-Disposition filename from a HEAD
// response. It returns "" when the server does not name the file.
func fileNameFromServer(ctx context.Context, client utils.HTTPDoer, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Str("op", "http/initial").Err(err).Msg("HEAD for file name failed")
		return ""
	}
	defer resp.Body.Close()
	contentDisposition := resp.Header.Get("Content-Disposition")
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn, ok := params["filename"]; ok && fn != "" {
		return filenameRegex.ReplaceAllString(filepath.Base(fn), "_")
	}
	if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
		unescaped, _ := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		return filenameRegex.ReplaceAllString(filepath.Base(unescaped), "_")
	}
	return ""
}
