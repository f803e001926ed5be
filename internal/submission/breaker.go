package submission

import (
	"context"
	"errors"

	"github.com/fjod/go_checkout/domain"
	"github.com/sony/gobreaker/v2"
)

// errTransientOutcome feeds transient results into the breaker's failure
// count without losing the typed result.
var errTransientOutcome = errors.New("transient submission outcome")

// BreakerPort wraps another port with a circuit breaker. While the breaker
// is open, submissions short-circuit to a retryable failure instead of
// hammering a service that is already down.
type BreakerPort struct {
	inner Port
	cb    *gobreaker.CircuitBreaker[*domain.SubmissionResult]
}

func NewBreakerPort(inner Port) *BreakerPort {
	settings := gobreaker.Settings{
		Name: "submission-port",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BreakerPort{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*domain.SubmissionResult](settings),
	}
}

func (b *BreakerPort) Submit(ctx context.Context, req *domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	var last *domain.SubmissionResult

	_, err := b.cb.Execute(func() (*domain.SubmissionResult, error) {
		result, errSubmit := b.inner.Submit(ctx, req)
		if errSubmit != nil {
			return nil, errSubmit
		}
		last = result
		if result.Outcome == domain.OutcomeTransientFailure {
			return nil, errTransientOutcome
		}
		return result, nil
	})

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errTransientOutcome):
		return last, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return domain.SubmissionTransientFailure("circuit_open", "submission service temporarily unavailable"), nil
	default:
		return nil, err
	}
}
