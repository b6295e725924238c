package fetchhttp

import (
	"bytes"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/fetcher/internal/utils"
)

func randomPayload(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(data)
	return data
}

func bytesReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}

// rangeServer serves data with full Range and HEAD support.
func rangeServer(t *testing.T, data []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.ServeContent(w, r, "payload.bin", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// plainServer ignores Range headers and always answers 200 with the whole body.
func plainServer(t *testing.T, data []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var gets atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodGet {
			gets.Add(1)
			w.Write(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &gets
}

// trickleServer serves data in 100-byte slices with delay between them,
// so a range is never idle for longer than delay. A request whose Range
// header equals stallRange gets one slice and then no more data.
func trickleServer(t *testing.T, data []byte, delay time.Duration, stallRange string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, end := int64(0), int64(len(data)-1)
		status := http.StatusOK
		if rh := r.Header.Get("Range"); rh != "" {
			if _, err := fmt.Sscanf(rh, "bytes=%d-%d", &start, &end); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			end = min(end, int64(len(data)-1))
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
			status = http.StatusPartialContent
		}
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.WriteHeader(status)
		if r.Method == http.MethodHead {
			return
		}
		body := data[start : end+1]
		for off := 0; off < len(body); off += 100 {
			w.Write(body[off:min(off+100, len(body))])
			w.(http.Flusher).Flush()
			if r.Header.Get("Range") == stallRange {
				<-r.Context().Done()
				return
			}
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadURL returns a URL whose server is already closed, so every request
// fails with a connection error.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/file.bin"
	srv.Close()
	return url
}

type countingTracker struct {
	mu       sync.Mutex
	started  int64
	tiers    []string
	added    int64
	finished []utils.Outcome
}

func (c *countingTracker) Start(total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = total
}

func (c *countingTracker) BeginTier(name string, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers = append(c.tiers, name)
}

func (c *countingTracker) Add(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added += n
}

func (c *countingTracker) Finish(o utils.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, o)
}
