package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_checkout/domain"
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
	// ErrBusy rejects transitions while a submission is in flight, so a
	// second order-creation call can never race a pending one.
	ErrBusy                = errors.New("submission in flight, transition rejected")
	IllegalTransitionError = errors.New("illegal transition of checkout step")
	// ErrStaleTotal means the cart changed after the total shown to the
	// user; the refreshed summary must be confirmed before resubmitting.
	ErrStaleTotal = errors.New("order total changed, confirm the updated summary before resubmitting")
)

// ValidationError carries per-field failures from a gate or from the order
// service. The step does not change when it is returned.
type ValidationError struct {
	Step   domain.Step
	Fields []domain.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d field(s) failed validation on step %s", len(e.Fields), e.Step)
}

// SubmissionError wraps a failed submission outcome. Retryable mirrors the
// result: transient failures may be retried with the same idempotency key,
// fatal ones should lead to a reset.
type SubmissionError struct {
	Result *domain.SubmissionResult
}

func (e *SubmissionError) Error() string {
	if e.Result.Message != "" {
		return fmt.Sprintf("submission failed: %s (%s)", e.Result.Message, e.Result.ErrorCode)
	}
	return fmt.Sprintf("submission failed: %s", e.Result.ErrorCode)
}

func (e *SubmissionError) Retryable() bool {
	return e.Result.Retryable
}
