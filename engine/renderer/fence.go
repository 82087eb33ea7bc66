package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultFenceTimeout bounds how long BeginTarget waits for a target's previous
	// submission before the frame is dropped.
	DefaultFenceTimeout = 2 * time.Second

	fenceInitialInterval = 200 * time.Microsecond
	fenceMaxInterval     = 10 * time.Millisecond
)

// Fence reports the completion of a submitted command buffer.
type Fence interface {
	// Signaled reports whether the GPU finished the submission. Implementations may
	// poll the device.
	//
	// Returns:
	//   - bool: true once complete
	Signaled() bool
}

var errFencePending = errors.New("fence pending")

// waitFence blocks until f is signaled, polling with exponential backoff.
//
// Parameters:
//   - ctx: cancels the wait
//   - f: the fence, nil for nothing to wait on
//   - timeout: the longest total wait
//
// Returns:
//   - error: wraps ErrFenceTimeout when the fence stays unsignaled
func waitFence(ctx context.Context, f Fence, timeout time.Duration) error {
	if f == nil || f.Signaled() {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = fenceInitialInterval
	b.MaxInterval = fenceMaxInterval
	b.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		if f.Signaled() {
			return nil
		}
		return errFencePending
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("%w after %v: %w", ErrFenceTimeout, timeout, err)
	}
	return nil
}
