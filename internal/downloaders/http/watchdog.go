package fetchhttp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errStalled = errors.New("no data received within stall timeout")

// idleWatchdog cancels its context once no progress has been reported for
// timeout. It bounds idle time, not total transfer time.
type idleWatchdog struct {
	timer   *time.Timer
	timeout time.Duration
}

// withIdleTimeout returns a context cancelled with errStalled when the
// watchdog is not touched for timeout. stop must be called when done.
func withIdleTimeout(ctx context.Context, timeout time.Duration) (context.Context, *idleWatchdog, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	w := &idleWatchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() { cancel(errStalled) })
	stop := func() {
		w.timer.Stop()
		cancel(nil)
	}
	return ctx, w, stop
}

// Touch records progress and restarts the idle period.
func (w *idleWatchdog) Touch() {
	w.timer.Reset(w.timeout)
}

func stallCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, errStalled) {
		return fmt.Errorf("%w: %w", errStalled, err)
	}
	return err
}
