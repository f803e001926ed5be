// Package session hands out one checkout service per browsing session and
// restores interrupted drafts from the draft store.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/cart"
	"github.com/fjod/go_checkout/internal/checkout"
	"github.com/fjod/go_checkout/internal/journal"
	"github.com/fjod/go_checkout/internal/pricing"
	"github.com/fjod/go_checkout/internal/store"
	"github.com/fjod/go_checkout/internal/submission"
)

var ErrSessionNotFound = errors.New("session not found")

// Config carries the collaborators shared by every session. Drafts, Journal
// and Events may be nil; Port is required.
type Config struct {
	Drafts   store.DraftStore
	Journal  journal.Journal
	Port     submission.Port
	Events   checkout.EventPublisher
	Notifier cart.SavedItemNotifier

	ShippingCost   decimal.Decimal
	TaxRate        decimal.Decimal
	Currency       string
	LookupDiscount func(code string) *pricing.Discount
}

type Manager struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*checkout.Service
	sfg      singleflight.Group // prevents duplicate restores of one session
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*checkout.Service),
	}
}

// NewSession starts a fresh session with an empty cart and a step-1 draft.
func (m *Manager) NewSession() (string, *checkout.Service) {
	sessionID := uuid.NewString()
	svc := m.build(domain.NewDraft(sessionID, uuid.NewString()))

	m.mu.Lock()
	m.sessions[sessionID] = svc
	m.mu.Unlock()
	return sessionID, svc
}

// Get returns the live service for a session, restoring its draft from the
// store if this is the first request since a restart. Concurrent first
// requests for the same session share one restore.
func (m *Manager) Get(ctx context.Context, sessionID string) (*checkout.Service, error) {
	m.mu.RLock()
	svc, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return svc, nil
	}

	v, err, _ := m.sfg.Do(sessionID, func() (interface{}, error) {
		m.mu.RLock()
		svc, ok := m.sessions[sessionID]
		m.mu.RUnlock()
		if ok {
			return svc, nil
		}

		draft, err := m.restore(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		svc = m.build(*draft)

		m.mu.Lock()
		m.sessions[sessionID] = svc
		m.mu.Unlock()
		return svc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*checkout.Service), nil
}

// Drop forgets a session and deletes its persisted draft.
func (m *Manager) Drop(ctx context.Context, sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if m.cfg.Drafts != nil {
		if err := m.cfg.Drafts.Delete(ctx, sessionID); err != nil {
			log.Printf("draft delete error: %v \n", err)
		}
	}
}

// restore loads the persisted draft. A corrupt or incompatible record is
// deleted and replaced with a fresh step-1 draft rather than surfacing an
// error the user cannot act on.
func (m *Manager) restore(ctx context.Context, sessionID string) (*domain.CheckoutDraft, error) {
	if m.cfg.Drafts == nil {
		return nil, ErrSessionNotFound
	}

	draft, err := m.cfg.Drafts.Load(ctx, sessionID)
	if err == nil {
		return draft, nil
	}
	if errors.Is(err, store.ErrDraftCorrupt) {
		log.Printf("discarding corrupt draft for session = %v \n", sessionID)
		if delErr := m.cfg.Drafts.Delete(ctx, sessionID); delErr != nil {
			log.Printf("corrupt draft delete error: %v \n", delErr)
		}
		fresh := domain.NewDraft(sessionID, uuid.NewString())
		return &fresh, nil
	}
	if errors.Is(err, store.ErrDraftNotFound) {
		return nil, ErrSessionNotFound
	}
	return nil, err
}

func (m *Manager) build(draft domain.CheckoutDraft) *checkout.Service {
	agg := cart.NewAggregate(draft.SessionID, m.cfg.Notifier)
	return checkout.NewService(draft, checkout.Deps{
		Cart:           agg,
		Port:           m.cfg.Port,
		Journal:        m.cfg.Journal,
		Drafts:         m.cfg.Drafts,
		Events:         m.cfg.Events,
		ShippingCost:   m.cfg.ShippingCost,
		TaxRate:        m.cfg.TaxRate,
		Currency:       m.cfg.Currency,
		LookupDiscount: m.cfg.LookupDiscount,
	})
}
