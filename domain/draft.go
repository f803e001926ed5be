package domain

import "time"

// Step numbers the checkout pages. Confirmation is terminal.
type Step int

const (
	StepShipping     Step = 1
	StepPayment      Step = 2
	StepConfirmation Step = 3
)

func (s Step) Valid() bool {
	return s >= StepShipping && s <= StepConfirmation
}

// String representation (for logging)
func (s Step) String() string {
	switch s {
	case StepShipping:
		return "SHIPPING"
	case StepPayment:
		return "PAYMENT"
	case StepConfirmation:
		return "CONFIRMATION"
	default:
		return "UNKNOWN"
	}
}

// CanTransition reports whether the step graph allows moving from one step
// to another. Forward moves go one step at a time and backward moves are
// always allowed except from shipping.
func CanTransition(from, to Step) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch {
	case to == from+1:
		return true
	case to == from-1:
		return from > StepShipping
	}
	return false
}

type SubmissionStatus string

const (
	SubmissionStatusIdle       SubmissionStatus = "IDLE"
	SubmissionStatusSubmitting SubmissionStatus = "SUBMITTING"
	SubmissionStatusSucceeded  SubmissionStatus = "SUCCEEDED"
	SubmissionStatusFailed     SubmissionStatus = "FAILED"
)

func (s SubmissionStatus) String() string { return string(s) }

// CheckoutDraft is the in-progress checkout state for one session. It has a
// single writer (the checkout service) and is the record persisted by the
// draft store between reloads.
type CheckoutDraft struct {
	SessionID      string           `json:"session_id"`
	Step           Step             `json:"step"`
	Shipping       ShippingFormData `json:"shipping"`
	Payment        PaymentFormData  `json:"payment"`
	Summary        OrderSummary     `json:"order_summary"`
	OrderNumber    string           `json:"order_number,omitempty"`
	IdempotencyKey string           `json:"idempotency_key"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewDraft returns an empty step-1 draft for a session.
func NewDraft(sessionID, idempotencyKey string) CheckoutDraft {
	now := time.Now()
	return CheckoutDraft{
		SessionID:      sessionID,
		Step:           StepShipping,
		Summary:        EmptySummary(),
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
