package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/aws/smithy-go"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/types"
)

// errKind buckets failures for retry policy. These are kinds, not
// types: classification happens at the orchestrator boundary and the
// stages themselves just return plain errors.
type errKind int

const (
	kindTransient errKind = iota
	kindPermanent
	kindTimeout
)

var transientCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ProvisionedThroughputExceeded": true,
	"RequestTimeout":                true,
	"ServiceUnavailableException":   true,
	"InternalServerError":           true,
	"InternalServerException":       true,
	"LimitExceededException":        true,
}

func classify(err error) errKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return kindTransient
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return kindTransient
		}
		return kindPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return kindTransient
	}

	return kindPermanent
}

const (
	maxStageAttempts = 3
	retryBackoffBase = 500 * time.Millisecond
)

// withRetry runs fn with jittered exponential backoff for transient
// failures, up to the per-stage cap. The final escalation carries the
// last error.
func (o *Orchestrator) withRetry(ctx context.Context, step types.StepName, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxStageAttempts; attempt++ {
		if attempt > 0 {
			metrics.StageRetries.WithLabelValues(string(step)).Inc()
			backoff := o.backoff << (attempt - 1)
			backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("timeout: %w", lastErr)
		}
		if classify(lastErr) != kindTransient {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxStageAttempts, lastErr)
}
