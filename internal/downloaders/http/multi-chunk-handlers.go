package fetchhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

// ChunkFetcher retrieves single byte ranges of one URL. One call uses one
// connection; failures come back inside the ChunkResult.
type ChunkFetcher struct {
	Client    utils.HTTPDoer
	URL       string
	Timeout   time.Duration
	UserAgent string
	Progress  utils.ProgressTracker
}

func (f *ChunkFetcher) Fetch(ctx context.Context, chunk utils.ChunkSpec) utils.ChunkResult {
	start := time.Now()
	data, err := f.downloadSingleChunk(ctx, chunk)
	result := utils.ChunkResult{Index: chunk.Index, Duration: time.Since(start)}
	if err != nil {
		log.Warn().Str("op", "http/chunk").Err(err).Msgf("Connection %d error", chunk.Index)
		result.Err = err
		return result
	}
	log.Debug().Str("op", "http/chunk").Msgf("Connection %d done: %d bytes", chunk.Index, len(data))
	result.Data = data
	return result
}

func (f *ChunkFetcher) downloadSingleChunk(ctx context.Context, chunk utils.ChunkSpec) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = utils.DefaultChunkTimeout
	}
	ctx, watchdog, stop := withIdleTimeout(ctx, timeout)
	defer stop()

	rangeHeader := fmt.Sprintf("bytes=%d-%d", chunk.Start, chunk.End)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", rangeHeader)
	req.Header.Set("Connection", "keep-alive")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", fmt.Sprintf("%s (Conn %d)", f.UserAgent, chunk.Index))
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, stallCause(ctx, err)
	}
	defer resp.Body.Close()

	expected := chunk.Size()
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			start, end, _, err := ParseContentRange(cr)
			if err != nil {
				return nil, err
			}
			if start != chunk.Start || end != chunk.End {
				return nil, fmt.Errorf("range mismatch: asked for %s, got %s", rangeHeader, cr)
			}
		}
	case http.StatusOK:
		// a full body is only usable when it is exactly this chunk
		if chunk.Start != 0 || (resp.ContentLength >= 0 && resp.ContentLength != expected) {
			return nil, fmt.Errorf("server ignored range %s (status 200)", rangeHeader)
		}
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data := make([]byte, 0, expected)
	buffer := make([]byte, utils.ChunkBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			watchdog.Touch()
			if int64(len(data)+bytesRead) > expected {
				return nil, fmt.Errorf("size mismatch: received more than %d bytes", expected)
			}
			data = append(data, buffer[:bytesRead]...)
			if f.Progress != nil {
				f.Progress.Add(int64(bytesRead))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, stallCause(ctx, readErr)
		}
	}
	if int64(len(data)) != expected {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, len(data))
	}
	return data, nil
}
