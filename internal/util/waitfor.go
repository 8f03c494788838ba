package util

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until the context is cancelled, whichever comes
// first. It returns the context error on cancellation.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
