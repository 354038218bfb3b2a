// Package retry wraps single upstream calls with bounded exponential backoff
// that only triggers on rate-limit or quota errors.
package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"restauro/internal/domain"
)

const (
	DefaultRetries   = 2
	DefaultBaseDelay = 2 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy retries a call up to Retries times after the first attempt.
type Policy struct {
	Retries   int
	BaseDelay time.Duration
	Sleep     SleepFunc
	// OnRetry is invoked before each wait with the zero-based retry number.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func Default() Policy {
	return Policy{Retries: DefaultRetries, BaseDelay: DefaultBaseDelay, Sleep: Sleep}
}

// Do runs fn, retrying while it fails with a rate-limit error and attempts
// remain. Any other error is returned on first failure.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	delay := p.BaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= retries || !IsRateLimited(err) {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		delay *= 2
	}
}

// Value is Do for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Sleep is the timer-backed SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var quotaMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"rate-limit",
	"resource_exhausted",
	"too many requests",
}

// IsRateLimited reports whether err signals an upstream quota or rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}
	return HasQuotaMarker(err.Error())
}

// HasQuotaMarker reports whether an upstream message mentions a quota or
// rate-limit condition.
func HasQuotaMarker(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
