package fetchhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

// PerformSimpleDownload streams the whole resource over one connection into
// outputPath. The body read is cancelled when no bytes arrive for
// stallTimeout.
func PerformSimpleDownload(ctx context.Context, client utils.HTTPDoer, target utils.DownloadTarget, progress utils.ProgressTracker, stallTimeout time.Duration) (int64, error) {
	if stallTimeout <= 0 {
		stallTimeout = utils.DefaultStallTimeout
	}
	ctx, watchdog, stop := withIdleTimeout(ctx, stallTimeout)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error executing GET request: %w", stallCause(ctx, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tempPath := utils.TempPath(target.OutputPath)
	outFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "creating", Err: err}
	}
	completed := false
	defer func() {
		if !completed {
			outFile.Close()
			os.Remove(tempPath)
		}
	}()

	var written int64
	buffer := make([]byte, utils.StreamBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			watchdog.Touch()
			if _, writeErr := outFile.Write(buffer[:bytesRead]); writeErr != nil {
				return 0, &AssemblyError{Path: tempPath, Op: "writing", Err: writeErr}
			}
			written += int64(bytesRead)
			if progress != nil {
				progress.Add(int64(bytesRead))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return 0, fmt.Errorf("error reading response body: %w", stallCause(ctx, readErr))
		}
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return 0, fmt.Errorf("size mismatch: expected %d bytes, got %d", resp.ContentLength, written)
	}
	if err := outFile.Sync(); err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "syncing", Err: err}
	}
	if err := outFile.Close(); err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "closing", Err: err}
	}
	if err := os.Rename(tempPath, target.OutputPath); err != nil {
		return 0, &AssemblyError{Path: target.OutputPath, Op: "finalizing", Err: err}
	}
	completed = true
	log.Info().Str("op", "http/simple-downloader").Msgf("Simple download successful for %s", target.OutputPath)
	return written, nil
}
