package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/journal"
	"github.com/fjod/go_checkout/internal/validation"
)

// advancePayment validates the payment form, captures the submission
// snapshot and calls the port. Takes over the held lock and releases it
// before any I/O so concurrent cart mutations are never blocked.
func (s *Service) advancePayment(ctx context.Context) error {
	if errs := validation.ValidatePayment(s.draft.Payment); len(errs) > 0 {
		s.fieldErrors = errs
		s.lastError = "payment validation failed"
		s.mu.Unlock()
		return &ValidationError{Step: domain.StepPayment, Fields: errs}
	}
	if s.cart.Len() == 0 {
		s.mu.Unlock()
		return ErrEmptyCart
	}
	if s.stale {
		// refresh the summary and make the user confirm it first
		s.recomputeLocked()
		s.stale = false
		s.lastError = ErrStaleTotal.Error()
		s.mu.Unlock()
		s.persist()
		return ErrStaleTotal
	}

	s.recomputeLocked() // the submitted total is the one the user last saw
	req := s.snapshotLocked()

	s.submitting = true
	s.status = domain.SubmissionStatusSubmitting
	s.fieldErrors = nil
	s.attempt++
	gen := s.attempt
	subCtx, cancel := context.WithCancel(ctx)
	s.cancelAttempt = cancel
	s.mu.Unlock()
	s.persist()

	result := s.execute(subCtx, req)
	cancel()
	return s.finish(gen, req, result)
}

// execute consults the journal first: a submission already recorded as
// successful for this idempotency key is returned without a second port
// call. Everything else goes to the port; a plumbing error from the port is
// classified as transient since the retry is idempotent anyway.
func (s *Service) execute(ctx context.Context, req *domain.SubmissionRequest) *domain.SubmissionResult {
	if s.journal != nil {
		rec, err := s.journal.Lookup(ctx, req.IdempotencyKey)
		if err == nil && rec.Outcome == domain.OutcomeSuccess {
			log.Printf("duplicate submission detected idempotency_key = %v with order_number = %v", req.IdempotencyKey, rec.OrderNumber)
			return rec.Result()
		}
		if err != nil && !errors.Is(err, journal.ErrKeyNotFound) {
			log.Printf("journal lookup error: %v \n", err)
		}
	}

	result, err := s.port.Submit(ctx, req)
	if err != nil {
		return domain.SubmissionTransientFailure("port_error", err.Error())
	}
	return result
}

// finish applies a submission result to the draft. A result from a
// cancelled attempt (generation mismatch) is dropped: a late success after
// the user restarted must not resurrect the old flow.
func (s *Service) finish(gen int, req *domain.SubmissionRequest, result *domain.SubmissionResult) error {
	s.mu.Lock()
	if gen != s.attempt {
		s.mu.Unlock()
		return nil
	}
	s.submitting = false
	s.cancelAttempt = nil

	if s.staleDuringFlight {
		// the cart changed under the in-flight snapshot; record the outcome
		// for idempotent resubmission but do not complete on a stale total
		s.staleDuringFlight = false
		s.stale = true
		s.status = domain.SubmissionStatusFailed
		s.lastError = ErrStaleTotal.Error()
		s.recomputeLocked()
		s.applyQueuedLocked()
		s.draft.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.record(req, result)
		s.persist()
		return ErrStaleTotal
	}

	switch result.Outcome {
	case domain.OutcomeSuccess:
		s.draft.Step = domain.StepConfirmation
		s.draft.OrderNumber = result.OrderNumber
		s.status = domain.SubmissionStatusSucceeded
		s.lastError = ""
		s.fieldErrors = nil
		s.queued = nil
		s.draft.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.record(req, result)
		s.cart.Clear()
		if s.events != nil {
			if err := s.events.OrderPlaced(context.Background(), req, result.OrderNumber); err != nil {
				log.Printf("order placed event error: %v \n", err)
			}
		}
		s.persist()
		return nil

	case domain.OutcomeValidationFailure:
		s.status = domain.SubmissionStatusFailed
		s.fieldErrors = result.FieldErrors
		s.lastError = "order service rejected the submitted fields"
		s.applyQueuedLocked()
		s.draft.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.record(req, result)
		s.persist()
		return &ValidationError{Step: domain.StepPayment, Fields: result.FieldErrors}

	case domain.OutcomeFatalFailure:
		s.status = domain.SubmissionStatusFailed
		s.lastError = result.Message
		s.draft.Payment.ClearSecrets() // secrets never outlive a failed attempt
		s.applyQueuedLocked()
		s.draft.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.record(req, result)
		s.persist()
		return &SubmissionError{Result: result}

	default: // transient: stay at payment, same idempotency key on retry
		s.status = domain.SubmissionStatusFailed
		s.lastError = result.Message
		s.applyQueuedLocked()
		s.draft.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.record(req, result)
		s.persist()
		return &SubmissionError{Result: result}
	}
}

// record journals the attempt best-effort.
func (s *Service) record(req *domain.SubmissionRequest, result *domain.SubmissionResult) {
	if s.journal == nil {
		return
	}
	snapshot, err := json.Marshal(req)
	if err != nil {
		log.Printf("snapshot marshal error: %v \n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rec := &journal.Record{
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      req.SessionID,
		Outcome:        result.Outcome,
		OrderNumber:    result.OrderNumber,
		ErrorCode:      result.ErrorCode,
		Snapshot:       snapshot,
		TotalAmount:    req.Summary.Total.String(),
	}
	if errStore := s.journal.Store(ctx, rec); errStore != nil {
		log.Printf("journal store error: %v \n", errStore)
	}
}
