package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/validation"
)

// Advance moves the flow forward from the given step. Commands that name a
// step the draft already left are stale duplicates and no-op, which makes
// a double-submitted advance idempotent.
func (s *Service) Advance(ctx context.Context, from domain.Step) error {
	s.mu.Lock()

	if from != s.draft.Step {
		s.mu.Unlock()
		return nil
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}

	switch from {
	case domain.StepShipping:
		return s.advanceShipping()
	case domain.StepPayment:
		return s.advancePayment(ctx)
	default:
		s.mu.Unlock()
		return IllegalTransitionError
	}
}

// advanceShipping validates the step-1 form and enters the payment step.
// Takes over the held lock.
func (s *Service) advanceShipping() error {
	if errs := validation.ValidateShipping(s.draft.Shipping); len(errs) > 0 {
		s.fieldErrors = errs
		s.lastError = "shipping validation failed"
		s.mu.Unlock()
		return &ValidationError{Step: domain.StepShipping, Fields: errs}
	}
	if !domain.CanTransition(s.draft.Step, domain.StepPayment) {
		s.mu.Unlock()
		return IllegalTransitionError
	}

	s.draft.Step = domain.StepPayment
	s.fieldErrors = nil
	s.lastError = ""
	s.recomputeLocked() // entering the payment step refreshes the summary
	s.stale = false
	s.draft.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist()
	return nil
}

// Retreat steps back one page. Draft fields persist; submission state is
// untouched. Disallowed from the shipping step and while submitting.
func (s *Service) Retreat() error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if !domain.CanTransition(s.draft.Step, s.draft.Step-1) {
		s.mu.Unlock()
		return IllegalTransitionError
	}

	s.draft.Step--
	s.draft.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist()
	return nil
}

// Reset returns to an empty step-1 draft with a fresh idempotency key. An
// in-flight submission is cancelled and its late result discarded.
func (s *Service) Reset() {
	s.mu.Lock()
	if s.cancelAttempt != nil {
		s.cancelAttempt()
		s.cancelAttempt = nil
	}
	s.attempt++ // invalidates any pending finish
	s.submitting = false

	s.draft = domain.NewDraft(s.draft.SessionID, uuid.NewString())
	s.status = domain.SubmissionStatusIdle
	s.lastError = ""
	s.fieldErrors = nil
	s.queued = nil
	s.stale = false
	s.staleDuringFlight = false
	s.recomputeLocked()
	s.mu.Unlock()

	s.persist()
}

// SetField writes one form field without changing the step. Edits that
// target the step currently being submitted are queued and applied once the
// submission resolves, so the in-flight snapshot cannot be raced.
func (s *Service) SetField(scope domain.Step, name, value string) error {
	s.mu.Lock()
	if s.submitting && scope == s.draft.Step {
		s.queued = append(s.queued, queuedEdit{scope: scope, name: name, value: value})
		s.mu.Unlock()
		return nil
	}

	err := s.setFieldLocked(scope, name, value)
	s.draft.UpdatedAt = time.Now()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.persist()
	return nil
}

func (s *Service) setFieldLocked(scope domain.Step, name, value string) error {
	switch scope {
	case domain.StepShipping:
		return s.draft.Shipping.SetShippingField(name, value)
	case domain.StepPayment:
		return s.draft.Payment.SetPaymentField(name, value)
	default:
		return fmt.Errorf("step %s has no editable fields", scope)
	}
}

// applyQueuedLocked drains edits queued during a submission. Caller holds mu.
func (s *Service) applyQueuedLocked() {
	for _, edit := range s.queued {
		if err := s.setFieldLocked(edit.scope, edit.name, edit.value); err != nil {
			log.Printf("queued edit dropped: %v \n", err)
		}
	}
	s.queued = nil
}
