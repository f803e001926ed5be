// Package journal records submission attempts keyed by idempotency key so a
// retried or replayed submit can return the recorded outcome instead of
// creating a second order downstream.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_checkout/domain"
)

var ErrKeyNotFound = errors.New("idempotency key not found")

// Record is one journaled submission. Snapshot holds the submitted request
// (already stripped of raw card secrets) as JSON.
type Record struct {
	IdempotencyKey string
	SessionID      string
	Outcome        domain.SubmissionOutcome
	OrderNumber    string
	ErrorCode      string
	Snapshot       []byte
	TotalAmount    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Journal interface {
	// Lookup returns the recorded submission for a key, or ErrKeyNotFound.
	Lookup(ctx context.Context, idempotencyKey string) (*Record, error)
	// Store upserts the record for its key.
	Store(ctx context.Context, rec *Record) error
}

// Result rebuilds the typed submission result a record captured.
func (r *Record) Result() *domain.SubmissionResult {
	switch r.Outcome {
	case domain.OutcomeSuccess:
		return domain.SubmissionSuccess(r.OrderNumber)
	case domain.OutcomeFatalFailure:
		return domain.SubmissionFatalFailure(r.ErrorCode, "recorded fatal failure")
	default:
		return domain.SubmissionTransientFailure(r.ErrorCode, "recorded transient failure")
	}
}
