package publisher

import (
	"context"
	"io"
	"net"

	"github.com/alecthomas/errors"
	"github.com/jpillora/backoff"
	"google.golang.org/api/googleapi"

	"github.com/spotify/android-store-service/internal/log"
)

// isTransient reports whether a failed call may succeed if repeated.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 408 || gerr.Code == 429 || gerr.Code >= 500
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retry calls fn until it succeeds, fails permanently, or attempts are exhausted.
func (c *client) retry(ctx context.Context, op string, fn func() error) error {
	logger := log.FromContext(ctx).Scope("publisher")
	delay := backoff.Backoff{Min: c.config.MinBackoff, Max: c.config.MaxBackoff, Factor: 2, Jitter: true}
	attempts := max(c.config.Attempts, 1)
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts || !isTransient(err) {
			return errors.Wrap(remoteError(err), op)
		}
		wait := delay.Duration()
		logger.Warnf("%s failed (attempt %d of %d), retrying in %s: %s", op, attempt, attempts, wait, err)
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		case <-c.clock.After(wait):
		}
	}
}
