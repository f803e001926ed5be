// Package submission is the boundary to the external order-creation
// service. Outcomes come back as typed SubmissionResult values; the Go
// error return is reserved for caller-side plumbing failures, and transport
// problems are classified as transient results instead.
package submission

import (
	"context"

	"github.com/fjod/go_checkout/domain"
)

// Port submits one atomically captured checkout snapshot. The idempotency
// key inside the request lets the downstream service deduplicate retries.
type Port interface {
	Submit(ctx context.Context, req *domain.SubmissionRequest) (*domain.SubmissionResult, error)
}
