package capture

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"campus-meetup-confirm/pkg/logger"
)

// Handle is a running capture loop. Cancel stops frame delivery
// synchronously: once Cancel returns, no new frame reaches the callback,
// even if a decode was in flight when the loop was torn down.
type Handle struct {
	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Start opens the source and runs the decode loop, delivering each decoded
// frame text to deliver. The loop owns the source and closes it on exit,
// whatever the exit reason.
func Start(ctx context.Context, src Source, interval time.Duration, deliver func(string), log *logger.Logger) (*Handle, error) {
	if err := src.Open(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.active.Store(true)

	go h.loop(ctx, src, interval, deliver, log)

	return h, nil
}

func (h *Handle) loop(ctx context.Context, src Source, interval time.Duration, deliver func(string), log *logger.Logger) {
	defer close(h.done)
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("Failed to close capture source", "error", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		text, err := src.Next(ctx)
		switch {
		case err == nil:
			// Liveness gate: a decode finishing after Cancel must not
			// drive any state transition.
			if h.active.Load() {
				deliver(text)
			}
		case errors.Is(err, ErrNoFrame):
			// Nothing decodable yet; this is expected while scanning
		case errors.Is(err, io.EOF):
			log.Debug("Capture source exhausted")
			return
		case errors.Is(err, context.Canceled):
			return
		default:
			log.Warn("Frame decode attempt failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Cancel stops delivery and tears the loop down. Safe to call more than
// once and from inside the deliver callback.
func (h *Handle) Cancel() {
	h.active.Store(false)
	h.cancel()
}

// Done is closed when the loop has exited and the source is released
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
