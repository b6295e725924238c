package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
	"golang.org/x/time/rate"
)

// Status is one snapshot written to a Sink. Sizes are in MB, one decimal.
//
// DownloadedSize and Percent describe the whole target and never decrease;
// TierDownloadedSize counts only the bytes of the current tier.
type Status struct {
	Status             string  `json:"status"`
	Percent            int     `json:"percent"`
	DownloadedSize     float64 `json:"downloaded_size"`
	TotalSize          float64 `json:"total_size"`
	TierDownloadedSize float64 `json:"tier_downloaded_size"`
	Tier               string  `json:"tier,omitempty"`
	File               string  `json:"file,omitempty"`
	Error              string  `json:"error,omitempty"`

	DownloadedBytes     int64 `json:"-"`
	TierDownloadedBytes int64 `json:"-"`
	TotalBytes          int64 `json:"-"`
}

// Reporter is the shared progress counter for one download target.
//
// The byte counter is per tier: BeginTier resets it to zero. Records carry
// the high-water byte count across all tiers of the target, so observers
// never see downloaded_size or percent decrease.
type Reporter struct {
	mu         sync.Mutex
	sink       Sink
	limiter    *rate.Sometimes
	downloaded int64
	highWater  int64
	total      int64
	done       bool
	tier       string
	status     string
}

func NewReporter(sink Sink, interval time.Duration) *Reporter {
	if sink == nil {
		sink = NopSink{}
	}
	if interval <= 0 {
		interval = utils.DefaultProgressInterval
	}
	return &Reporter{
		sink:    sink,
		limiter: &rate.Sometimes{Interval: interval},
	}
}

// Start resets all state and emits the initial 0% record.
func (r *Reporter) Start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloaded = 0
	r.total = max(total, 0)
	r.highWater = 0
	r.done = false
	r.tier = ""
	r.emitLocked(utils.StatusStarting, "", "")
	// stamp the limiter so the next emission waits a full interval
	r.limiter.Do(func() {})
}

func (r *Reporter) BeginTier(name string, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tier = name
	r.downloaded = 0
	if total > 0 {
		r.total = total
	}
	log.Debug().Str("op", "progress/reporter").Msgf("Progress counter reset for tier %s", name)
}

// Add records n freshly received bytes and emits at most once per interval.
func (r *Reporter) Add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloaded += n
	r.limiter.Do(func() {
		r.emitLocked(utils.StatusDownloading, "", "")
	})
}

// Finish emits the terminal record unconditionally.
func (r *Reporter) Finish(outcome utils.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if outcome.Succeeded() {
		r.downloaded = outcome.SizeBytes
		if r.total <= 0 {
			r.total = outcome.SizeBytes
		}
		r.highWater = outcome.SizeBytes
		r.done = true
		r.emitLocked(utils.StatusSuccess, outcome.Path, "")
		return
	}
	r.emitLocked(utils.StatusError, "", outcome.Reason)
}

// Snapshot returns the current state under the status of the last emitted
// record.
func (r *Reporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(r.status)
}

func (r *Reporter) statusLocked(status string) Status {
	r.highWater = max(r.highWater, r.downloaded)
	percent := 0
	if r.done {
		percent = 100
	} else if r.total > 0 {
		percent = min(max(int(r.highWater*100/r.total), 0), 100)
	}
	return Status{
		Status:              status,
		Percent:             percent,
		DownloadedSize:      utils.ToMB(r.highWater),
		TotalSize:           utils.ToMB(r.total),
		TierDownloadedSize:  utils.ToMB(r.downloaded),
		Tier:                r.tier,
		DownloadedBytes:     r.highWater,
		TierDownloadedBytes: r.downloaded,
		TotalBytes:          r.total,
	}
}

func (r *Reporter) emitLocked(status, file, reason string) {
	r.status = status
	s := r.statusLocked(status)
	s.File = file
	s.Error = reason
	log.Debug().Str("op", "progress/reporter").Msgf("Progress: %d%% (%.1f/%.1f MB)", s.Percent, s.DownloadedSize, s.TotalSize)
	if err := r.sink.Write(s); err != nil {
		log.Debug().Str("op", "progress/reporter").Err(err).Msg("Progress write error")
	}
}
