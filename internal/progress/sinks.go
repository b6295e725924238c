package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/tanq16/fetcher/internal/utils"
)

// Sink receives whole status records; each write replaces the previous one.
type Sink interface {
	Write(s Status) error
}

type NopSink struct{}

func (NopSink) Write(Status) error { return nil }

// FileSink overwrites a JSON status file for external pollers. Writes go to a
// temp file in the same directory and are renamed into place.
type FileSink struct {
	Path string
}

func (f FileSink) Write(s Status) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("error creating progress temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error replacing progress file: %w", err)
	}
	return nil
}

// BarSink renders status records as a terminal progress bar.
type BarSink struct {
	bar  *progressbar.ProgressBar
	max  int64
	desc string
	tier string
}

func NewBarSink(w io.Writer, description string) *BarSink {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &BarSink{bar: bar, max: -1, desc: description}
}

func (b *BarSink) Write(s Status) error {
	if s.TotalBytes > 0 && s.TotalBytes != b.max {
		b.bar.ChangeMax64(s.TotalBytes)
		b.max = s.TotalBytes
	}
	if s.Tier != "" && s.Tier != b.tier {
		b.tier = s.Tier
		b.bar.Describe(fmt.Sprintf("%s [%s]", b.desc, s.Tier))
	}
	switch s.Status {
	case utils.StatusSuccess:
		b.bar.Set64(s.DownloadedBytes)
		return b.bar.Finish()
	case utils.StatusError:
		return b.bar.Exit()
	}
	return b.bar.Set64(s.DownloadedBytes)
}

type MultiSink []Sink

func (m MultiSink) Write(s Status) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
