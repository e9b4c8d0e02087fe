package refdata

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls how a failed reference list fetch is retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     bool
}

// DefaultRetryPolicy retries twice, starting at 200ms.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: true}

// normalized fills unset delays so a zero RetryPolicy still waits between
// reference fetches, and clamps MaxDelay to at least BaseDelay.
func (p RetryPolicy) normalized() RetryPolicy {
	q := p
	if q.BaseDelay <= 0 {
		q.BaseDelay = 200 * time.Millisecond
	}
	if q.MaxDelay <= 0 {
		q.MaxDelay = 5 * time.Second
	}
	if q.MaxDelay < q.BaseDelay {
		q.MaxDelay = q.BaseDelay
	}
	if q.MaxRetries < 0 {
		q.MaxRetries = 0
	}
	return q
}

// backoff returns the wait before retry number attempt (0-based): base
// doubled per attempt, capped at max. With jitter it falls between half
// and all of that.
func backoff(attempt int, base, max time.Duration, jitter bool) time.Duration {
	d := base << attempt
	if d > max || d <= 0 {
		d = max
	}
	if !jitter {
		return d
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	delta := time.Duration(rand.Int63n(int64(half))) // #nosec G404 non-crypto
	return half + delta
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
