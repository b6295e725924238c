package fetchhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

// ProbeContent learns the total size of url and whether it honors byte
// ranges. It never fails: problems degrade to RangeSupported=false or an
// unknown (zero) size.
func ProbeContent(ctx context.Context, client utils.HTTPDoer, url string, timeout time.Duration) utils.ContentMeta {
	if timeout <= 0 {
		timeout = utils.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var meta utils.ContentMeta
	supported, rangeTotal, err := testRangeSupport(ctx, client, url)
	if err != nil {
		log.Warn().Str("op", "http/range-probe").Err(err).Msg("Range test failed")
	}
	meta.RangeSupported = supported

	size, err := getContentLength(ctx, client, url)
	if err != nil {
		log.Warn().Str("op", "http/range-probe").Err(err).Msg("Could not read content length")
	}
	if size <= 0 && rangeTotal > 0 {
		log.Debug().Str("op", "http/range-probe").Msgf("Using Content-Range total %d as file size", rangeTotal)
		size = rangeTotal
	}
	meta.TotalSize = max(size, 0)
	log.Debug().Str("op", "http/range-probe").Msgf("Probe result: size=%d rangeSupported=%t", meta.TotalSize, meta.RangeSupported)
	return meta
}

// testRangeSupport requests the first KB and reports whether the server
// answered 206, plus the total from Content-Range when present.
func testRangeSupport(ctx context.Context, client utils.HTTPDoer, url string) (bool, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", utils.ProbeRangeBytes-1))
	resp, err := client.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()
	io.CopyN(io.Discard, resp.Body, utils.ProbeRangeBytes)
	if resp.StatusCode != http.StatusPartialContent {
		return false, 0, nil
	}
	var total int64
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if _, _, t, err := ParseContentRange(cr); err == nil && t > 0 {
			total = t
		}
	}
	return true, total, nil
}

func getContentLength(ctx context.Context, client utils.HTTPDoer, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return 0, fmt.Errorf("server didn't provide Content-Length header")
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, err
	}
	return size, nil
}

// ParseContentRange parses "bytes start-end/total". Total is -1 for "*".
func ParseContentRange(header string) (start, end, total int64, err error) {
	header = strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	rangeParts := strings.Split(parts[0], "-")
	if len(rangeParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	if start, err = strconv.ParseInt(rangeParts[0], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(rangeParts[1], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if parts[1] == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
