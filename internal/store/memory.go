package store

import (
	"context"
	"sync"

	"github.com/fjod/go_checkout/domain"
)

// MemoryStore implements DraftStore with in-memory storage. Drafts are
// deep-copied through JSON-free struct copies; the draft contains only
// value types and slices the caller does not retain.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]domain.CheckoutDraft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]domain.CheckoutDraft)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*domain.CheckoutDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[sessionID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return &draft, nil
}

func (s *MemoryStore) Save(_ context.Context, draft *domain.CheckoutDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.SessionID] = *draft
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}
