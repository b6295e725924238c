package utils

import (
	"errors"
	"time"
)

const (
	ChunkBufferSize  = 128 * 1024      // per-read buffer for range fetches
	StreamBufferSize = 2 * 1024 * 1024 // 2MB buffer for single-stream
	SocketBufferSize = 1024 * 1024
	ProbeRangeBytes  = 1024
	TempSuffix       = ".part"
	ToolUserAgent    = "fetcher/1.0"
)

const (
	DefaultProbeTimeout     = 15 * time.Second
	DefaultChunkTimeout     = 45 * time.Second
	DefaultStallTimeout     = 60 * time.Second
	DefaultProgressInterval = 200 * time.Millisecond
	DefaultProgressFile     = "/tmp/file_download_progress.json"
)

var (
	ErrPlanTooSmall     = errors.New("file too small for requested chunk count")
	ErrChunkGap         = errors.New("chunk set is missing chunks")
	ErrRetriesExhausted = errors.New("download failed after all retry attempts")
)

// Local-only User-Agent list
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"curl/7.88.1",
	"Wget/1.21.4",
}
