// Package httpapi exposes the checkout command surface over HTTP. Every
// route resolves the session first; state-changing commands respond with the
// refreshed checkout state so clients never render from a guess.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/cart"
	"github.com/fjod/go_checkout/internal/checkout"
	"github.com/fjod/go_checkout/internal/session"
)

type CheckoutHandler struct {
	manager *session.Manager
	timeout time.Duration
}

func NewCheckoutHandler(manager *session.Manager, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		manager: manager,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UnitPrice string            `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	InStock   bool              `json:"in_stock"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CouponRequestDTO struct {
	Code string `json:"code"`
}

type FieldRequestDTO struct {
	Step  int    `json:"step"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AdvanceRequestDTO struct {
	From int `json:"from"`
}

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	State     checkout.State `json:"state"`
}

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// Routes builds the router. The session id travels in the path; there is no
// user identity beyond it.
func (h *CheckoutHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/", h.GetState)
		r.Delete("/", h.EndSession)

		r.Post("/cart/items", h.AddItem)
		r.Put("/cart/items/{item_id}", h.UpdateQuantity)
		r.Delete("/cart/items/{item_id}", h.RemoveItem)
		r.Post("/cart/items/{item_id}/save", h.MoveToSaved)
		r.Post("/cart/coupon", h.ApplyCoupon)

		r.Put("/fields", h.SetField)
		r.Post("/advance", h.Advance)
		r.Post("/retreat", h.Retreat)
		r.Post("/reset", h.Reset)
	})
	return r
}

func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, svc := h.manager.NewSession()
	respondJSON(w, http.StatusCreated, SessionResponse{SessionID: sessionID, State: svc.State()})
}

func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.manager.Drop(ctx, chi.URLParam(r, "session_id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_unit_price", "unit_price must be a non-negative decimal")
		return
	}

	svc.AddItem(domain.LineItem{
		ID:        req.ID,
		Name:      req.Name,
		UnitPrice: price,
		InStock:   req.InStock,
		Metadata:  req.Metadata,
	}, req.Quantity)

	respondJSON(w, http.StatusCreated, svc.State())
}

func (h *CheckoutHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := svc.UpdateQuantity(chi.URLParam(r, "item_id"), req.Quantity); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	svc.RemoveItem(chi.URLParam(r, "item_id"))
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) MoveToSaved(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := svc.MoveToSaved(ctx, chi.URLParam(r, "item_id")); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	var req CouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	svc.ApplyCoupon(req.Code)
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) SetField(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	var req FieldRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	step := domain.Step(req.Step)
	if !step.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_step", "step must be 1, 2 or 3")
		return
	}

	if err := svc.SetField(step, req.Name, req.Value); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_field", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	var req AdvanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	from := domain.Step(req.From)
	if !from.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_step", "from must be 1, 2 or 3")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := svc.Advance(ctx, from); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	if err := svc.Retreat(); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, svc.State())
}

func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	svc.Reset()
	respondJSON(w, http.StatusOK, svc.State())
}

// service resolves the session from the path, writing the error response
// itself when the session is unknown.
func (h *CheckoutHandler) service(w http.ResponseWriter, r *http.Request) *checkout.Service {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	svc, err := h.manager.Get(ctx, chi.URLParam(r, "session_id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "unknown or expired session")
		} else {
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		}
		return nil
	}
	return svc
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleCheckoutError converts domain errors to HTTP status codes.
func handleCheckoutError(w http.ResponseWriter, err error) {
	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  err.Error(),
			Code:   "validation_failed",
			Fields: vErr.Fields,
		})
		return
	}

	var subErr *checkout.SubmissionError
	if errors.As(err, &subErr) {
		if subErr.Retryable() {
			respondError(w, http.StatusServiceUnavailable, "submission_retryable", err.Error())
		} else {
			respondError(w, http.StatusBadGateway, "submission_failed", err.Error())
		}
		return
	}

	switch {
	case errors.Is(err, checkout.ErrBusy):
		respondError(w, http.StatusConflict, "submission_in_progress", err.Error())
	case errors.Is(err, checkout.ErrStaleTotal):
		respondError(w, http.StatusConflict, "stale_total", err.Error())
	case errors.Is(err, checkout.IllegalTransitionError):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
