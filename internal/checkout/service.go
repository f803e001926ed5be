// Package checkout owns the checkout draft for one session and drives it
// through shipping, payment and confirmation. The draft has a single
// writer; cart mutations arrive concurrently and only influence the flow
// through the recomputed order summary.
package checkout

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/cart"
	"github.com/fjod/go_checkout/internal/journal"
	"github.com/fjod/go_checkout/internal/pricing"
	"github.com/fjod/go_checkout/internal/store"
	"github.com/fjod/go_checkout/internal/submission"
)

// EventPublisher is told about completed orders. Optional.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, req *domain.SubmissionRequest, orderNumber string) error
}

// Deps wires the collaborators of one checkout session. Cart and Port are
// required; Journal, Drafts and Events may be nil.
type Deps struct {
	Cart    *cart.Aggregate
	Port    submission.Port
	Journal journal.Journal
	Drafts  store.DraftStore
	Events  EventPublisher

	ShippingCost   decimal.Decimal
	TaxRate        decimal.Decimal
	Currency       string
	LookupDiscount func(code string) *pricing.Discount
}

type queuedEdit struct {
	scope domain.Step
	name  string
	value string
}

type Service struct {
	cart    *cart.Aggregate
	port    submission.Port
	journal journal.Journal
	drafts  store.DraftStore
	events  EventPublisher

	shippingCost   decimal.Decimal
	taxRate        decimal.Decimal
	currency       string
	lookupDiscount func(code string) *pricing.Discount

	mu          sync.Mutex
	draft       domain.CheckoutDraft
	status      domain.SubmissionStatus
	lastError   string
	fieldErrors []domain.FieldError

	submitting        bool
	attempt           int
	cancelAttempt     context.CancelFunc
	queued            []queuedEdit
	stale             bool
	staleDuringFlight bool
}

// NewService builds the checkout service around an existing draft (fresh or
// restored from the draft store) and subscribes to cart changes.
func NewService(draft domain.CheckoutDraft, deps Deps) *Service {
	if draft.IdempotencyKey == "" {
		draft.IdempotencyKey = uuid.NewString()
	}
	s := &Service{
		cart:           deps.Cart,
		port:           deps.Port,
		journal:        deps.Journal,
		drafts:         deps.Drafts,
		events:         deps.Events,
		shippingCost:   deps.ShippingCost,
		taxRate:        deps.TaxRate,
		currency:       deps.Currency,
		lookupDiscount: deps.LookupDiscount,
		draft:          draft,
		status:         domain.SubmissionStatusIdle,
	}
	deps.Cart.Subscribe(s.onCartChanged)
	return s
}

// State is the read-only view exposed downstream.
type State struct {
	SessionID   string                  `json:"session_id"`
	Step        domain.Step             `json:"step"`
	Shipping    domain.ShippingFormData `json:"shipping"`
	Payment     domain.PaymentFormData  `json:"payment"`
	Summary     domain.OrderSummary     `json:"order_summary"`
	Status      domain.SubmissionStatus `json:"submission_status"`
	OrderNumber string                  `json:"order_number,omitempty"`
	LastError   string                  `json:"last_error,omitempty"`
	FieldErrors []domain.FieldError     `json:"field_errors,omitempty"`
	StaleTotal  bool                    `json:"stale_total,omitempty"`
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID:   s.draft.SessionID,
		Step:        s.draft.Step,
		Shipping:    s.draft.Shipping,
		Payment:     s.draft.Payment,
		Summary:     s.draft.Summary,
		Status:      s.status,
		OrderNumber: s.draft.OrderNumber,
		LastError:   s.lastError,
		FieldErrors: append([]domain.FieldError(nil), s.fieldErrors...),
		StaleTotal:  s.stale,
	}
}

// IdempotencyKey returns the key of the current order intent. It stays
// stable across retries and changes on reset.
func (s *Service) IdempotencyKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.IdempotencyKey
}

// Cart command surface. The aggregate notifies the service back through
// onCartChanged, which keeps the summary current.

func (s *Service) AddItem(item domain.LineItem, qty int) {
	s.cart.AddItem(item, qty)
}

func (s *Service) UpdateQuantity(id string, qty int) error {
	return s.cart.UpdateQuantity(id, qty)
}

func (s *Service) RemoveItem(id string) {
	s.cart.RemoveItem(id)
}

func (s *Service) MoveToSaved(ctx context.Context, id string) error {
	return s.cart.MoveToSaved(ctx, id)
}

func (s *Service) ApplyCoupon(code string) {
	s.cart.SetCoupon(code)
}

func (s *Service) Items() []domain.LineItem {
	return s.cart.Items()
}

// onCartChanged recomputes the summary after every cart mutation. If the
// session already reached the payment step and the total moved, payment
// readiness is invalidated so a stale total cannot be submitted silently.
func (s *Service) onCartChanged(items []domain.LineItem) {
	s.mu.Lock()
	if s.draft.Step == domain.StepConfirmation {
		// order already placed, the confirmed summary stays frozen
		s.mu.Unlock()
		return
	}
	prevTotal := s.draft.Summary.Total
	s.draft.Summary = pricing.Project(items, s.pricingInputs())
	s.draft.UpdatedAt = time.Now()
	if s.draft.Step == domain.StepPayment && !s.draft.Summary.Total.Equal(prevTotal) {
		s.stale = true
		if s.submitting {
			s.staleDuringFlight = true
		}
	}
	s.mu.Unlock()
	s.persist()
}

func (s *Service) pricingInputs() pricing.Inputs {
	in := pricing.Inputs{
		ShippingCost: s.shippingCost,
		TaxRate:      s.taxRate,
		Currency:     s.currency,
	}
	if code := s.cart.Coupon(); code != "" && s.lookupDiscount != nil {
		in.Discount = s.lookupDiscount(code)
	}
	return in
}

// recomputeLocked refreshes the summary from the live cart. Caller holds mu.
func (s *Service) recomputeLocked() {
	s.draft.Summary = pricing.Project(s.cart.Items(), s.pricingInputs())
}

// snapshotLocked captures the submission request atomically. Caller holds
// mu and has just recomputed the summary.
func (s *Service) snapshotLocked() *domain.SubmissionRequest {
	items := make([]domain.SubmissionItem, 0, len(s.draft.Summary.Items))
	for _, it := range s.draft.Summary.Items {
		items = append(items, domain.SubmissionItem{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &domain.SubmissionRequest{
		SessionID:      s.draft.SessionID,
		Shipping:       s.draft.Shipping,
		Payment:        domain.MaskPayment(s.draft.Payment),
		Items:          items,
		Summary:        s.draft.Summary,
		IdempotencyKey: s.draft.IdempotencyKey,
	}
}

// persist saves the draft best-effort; a failed save never blocks the flow.
func (s *Service) persist() {
	if s.drafts == nil {
		return
	}
	s.mu.Lock()
	draft := s.draft
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.drafts.Save(ctx, &draft); err != nil {
		log.Printf("draft save error: %v \n", err)
	}
}
