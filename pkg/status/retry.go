package status

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
)

// RetryPolicy bounds how long a RetryingReporter keeps trying.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     15 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		MaxRetries:      5,
	}
}

// RetryingReporter retries transient failures of another Sender. Network
// errors and server-side API errors are retried; authentication, unknown
// commit and validation errors are returned at once.
type RetryingReporter struct {
	next   Sender
	policy RetryPolicy
	logger observability.Logger
}

// NewRetryingReporter wraps next with policy.
func NewRetryingReporter(next Sender, policy RetryPolicy, logger observability.Logger) *RetryingReporter {
	if logger == nil {
		logger = observability.Nop()
	}
	return &RetryingReporter{next: next, policy: policy, logger: logger}
}

// Report delivers u, retrying while the error is retryable.
func (r *RetryingReporter) Report(ctx context.Context, u Update) error {
	attempt := 0
	op := func() error {
		attempt++
		err := r.next.Report(ctx, u)
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying commit status",
			observability.String("sha", u.CommitSHA),
			observability.Int("attempt", attempt),
			observability.Duration("wait", wait),
			observability.Err(err))
	}

	return backoff.RetryNotify(op, r.backOff(ctx), notify)
}

func (r *RetryingReporter) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		exp.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		exp.MaxInterval = r.policy.MaxInterval
	}
	exp.MaxElapsedTime = r.policy.MaxElapsedTime

	var b backoff.BackOff = exp
	if r.policy.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, r.policy.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}
