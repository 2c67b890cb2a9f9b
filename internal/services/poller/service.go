// Package poller waits for a pod to reach running status.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tnrlabs/thunder-runner/internal/models"
)

// StatusFunc fetches the current status of a pod.
type StatusFunc func(ctx context.Context, id string) (*models.Pod, error)

// Service defines the interface for readiness polling.
type Service interface {
	WaitUntilRunning(ctx context.Context, statusFn StatusFunc, id string, maxAttempts int, interval time.Duration) (*models.Pod, error)
}

// Impl implements the poller Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new readiness poller.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// WaitUntilRunning polls statusFn at a fixed interval until the pod reports
// running, up to maxAttempts. No backoff, no jitter: pod boot time is bounded
// and interactive latency is acceptable. An unparseable status response
// consumes the attempt and polling continues; an error status fails
// immediately. Exhausting the budget fails with a TimeoutError.
func (s *Impl) WaitUntilRunning(ctx context.Context, statusFn StatusFunc, id string, maxAttempts int, interval time.Duration) (*models.Pod, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pod, err := statusFn(ctx, id)
		switch {
		case err == nil:
			switch pod.Status {
			case models.PodStatusRunning:
				s.logger.Info().
					Str("instance_id", id).
					Int("attempt", attempt).
					Msg("pod is running")
				return pod, nil
			case models.PodStatusError:
				return nil, fmt.Errorf("pod %s reported error status on attempt %d", id, attempt)
			default:
				s.logger.Debug().
					Str("instance_id", id).
					Str("status", string(pod.Status)).
					Int("attempt", attempt).
					Msg("pod not running yet")
			}
		case isTransient(err):
			// A malformed status response is a failure of the attempt,
			// not of the whole wait.
			s.logger.Debug().
				Err(err).
				Str("instance_id", id).
				Int("attempt", attempt).
				Msg("status attempt failed")
		default:
			return nil, err
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, &models.TimeoutError{PodID: id, Attempts: maxAttempts}
}

// isTransient reports whether a status failure should consume the attempt
// rather than abort the wait. Rejected tokens and invalid input cannot heal
// by retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var authErr *models.AuthError
	var valErr *models.ValidationError
	if errors.As(err, &authErr) || errors.As(err, &valErr) {
		return false
	}
	var apiErr *models.APIError
	return errors.As(err, &apiErr)
}
