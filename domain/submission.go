package domain

import "github.com/shopspring/decimal"

// SubmissionOutcome tags the variants of a submission result.
type SubmissionOutcome string

const (
	OutcomeSuccess           SubmissionOutcome = "SUCCESS"
	OutcomeValidationFailure SubmissionOutcome = "VALIDATION_FAILURE"
	OutcomeTransientFailure  SubmissionOutcome = "TRANSIENT_FAILURE"
	OutcomeFatalFailure      SubmissionOutcome = "FATAL_FAILURE"
)

// SubmissionResult is the typed outcome of one order-creation attempt. The
// port returns it as a value for every service-level failure; Go errors are
// reserved for broken plumbing on the caller's side.
type SubmissionResult struct {
	Outcome     SubmissionOutcome `json:"outcome"`
	OrderNumber string            `json:"order_number,omitempty"`
	FieldErrors []FieldError      `json:"field_errors,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message,omitempty"`
	Retryable   bool              `json:"retryable"`
}

func SubmissionSuccess(orderNumber string) *SubmissionResult {
	return &SubmissionResult{Outcome: OutcomeSuccess, OrderNumber: orderNumber}
}

func SubmissionValidationFailure(fieldErrors []FieldError) *SubmissionResult {
	return &SubmissionResult{Outcome: OutcomeValidationFailure, FieldErrors: fieldErrors}
}

func SubmissionTransientFailure(code, message string) *SubmissionResult {
	return &SubmissionResult{Outcome: OutcomeTransientFailure, ErrorCode: code, Message: message, Retryable: true}
}

func SubmissionFatalFailure(code, message string) *SubmissionResult {
	return &SubmissionResult{Outcome: OutcomeFatalFailure, ErrorCode: code, Message: message}
}

// PaymentRef is the payment selection forwarded to the order service. Raw
// card secrets stay behind the PCI boundary; only the method, last four
// digits and expiry cross it.
type PaymentRef struct {
	Method     PaymentMethod `json:"payment_method"`
	CardLast4  string        `json:"card_last4,omitempty"`
	ExpiryDate string        `json:"expiry_date,omitempty"`
}

// MaskPayment reduces a payment form to its forwardable reference.
func MaskPayment(p PaymentFormData) PaymentRef {
	ref := PaymentRef{Method: p.Method, ExpiryDate: p.ExpiryDate}
	if n := len(p.CardNumber); n >= 4 {
		ref.CardLast4 = p.CardNumber[n-4:]
	}
	return ref
}

type SubmissionItem struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SubmissionRequest is the snapshot sent to the submission port. It is
// captured atomically: the summary inside it is recomputed from the live
// cart immediately before capture, so the submitted total is the one the
// user last saw.
type SubmissionRequest struct {
	SessionID      string           `json:"session_id"`
	Shipping       ShippingFormData `json:"shipping"`
	Payment        PaymentRef       `json:"payment"`
	Items          []SubmissionItem `json:"items"`
	Summary        OrderSummary     `json:"totals"`
	IdempotencyKey string           `json:"idempotency_key"`
}
