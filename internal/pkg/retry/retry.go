// Package retry re-runs operations that failed with a transient storage error.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/pkg/logger"
)

// Policy bounds a retry loop. A zero MaxElapsed disables retries.
type Policy struct {
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

func (p Policy) backOff() backoff.BackOff {
	// BackOff implementations are stateful; build a fresh one per call.
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	bo.MaxElapsedTime = p.MaxElapsed
	return bo
}

// Do runs op until it succeeds, returns a non-transient error, the policy's
// elapsed budget runs out, or ctx is done. The last error from op is returned.
func Do(ctx context.Context, p Policy, transient Classifier, op func(ctx context.Context) error) error {
	if p.MaxElapsed <= 0 || transient == nil {
		return op(ctx)
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !transient(err) {
			return backoff.Permanent(err)
		}
		logger.Debug("transient failure, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}, backoff.WithContext(p.backOff(), ctx))
	return err
}
