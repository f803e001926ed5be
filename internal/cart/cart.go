package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_checkout/domain"
)

var ErrItemNotFound = errors.New("item not found in cart")

// SavedItemNotifier is the wishlist collaborator told about items moved out
// of the active cart. The cart does not own the saved list.
type SavedItemNotifier interface {
	ItemSaved(ctx context.Context, sessionID string, item domain.LineItem) error
}

// ChangeListener receives a snapshot of the items after every mutation.
type ChangeListener func(items []domain.LineItem)

// Aggregate owns the line items of one session's cart. All mutations go
// through its methods; item ids stay unique and quantities stay >= 1.
// It is safe for concurrent use because cart mutations can arrive from an
// interaction surface open beside the checkout flow.
type Aggregate struct {
	mu        sync.RWMutex
	sessionID string
	items     []domain.LineItem
	coupon    string
	listeners []ChangeListener
	notifier  SavedItemNotifier
}

func NewAggregate(sessionID string, notifier SavedItemNotifier) *Aggregate {
	return &Aggregate{sessionID: sessionID, notifier: notifier}
}

// Subscribe registers a listener invoked after every mutation with a copy of
// the current items. Listeners run outside the aggregate lock.
func (a *Aggregate) Subscribe(l ChangeListener) {
	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()
}

// AddItem inserts a new line or merges the quantity into an existing one
// with the same id. Quantities below 1 are clamped.
func (a *Aggregate) AddItem(item domain.LineItem, qty int) {
	if qty < 1 {
		qty = 1
	}
	a.mu.Lock()
	merged := false
	for i := range a.items {
		if a.items[i].ID == item.ID {
			a.items[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = qty
		a.items = append(a.items, item)
	}
	a.mu.Unlock()
	a.notifyChanged()
}

// UpdateQuantity sets the quantity of an existing line, clamped to >= 1.
// Returns ErrItemNotFound for an absent id without touching the cart.
func (a *Aggregate) UpdateQuantity(id string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	a.mu.Lock()
	found := false
	for i := range a.items {
		if a.items[i].ID == id {
			a.items[i].Quantity = qty
			found = true
			break
		}
	}
	a.mu.Unlock()
	if !found {
		return ErrItemNotFound
	}
	a.notifyChanged()
	return nil
}

// RemoveItem deletes a line. Removing an absent id is a no-op.
func (a *Aggregate) RemoveItem(id string) {
	a.mu.Lock()
	removed := false
	for i := range a.items {
		if a.items[i].ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			removed = true
			break
		}
	}
	a.mu.Unlock()
	if removed {
		a.notifyChanged()
	}
}

// MoveToSaved removes a line from the active cart and hands it to the
// wishlist collaborator. The removal sticks even if the notifier fails; the
// error is returned so the caller can surface it.
func (a *Aggregate) MoveToSaved(ctx context.Context, id string) error {
	a.mu.Lock()
	var saved *domain.LineItem
	for i := range a.items {
		if a.items[i].ID == id {
			item := a.items[i]
			a.items = append(a.items[:i], a.items[i+1:]...)
			saved = &item
			break
		}
	}
	a.mu.Unlock()

	if saved == nil {
		return ErrItemNotFound
	}
	a.notifyChanged()

	if a.notifier == nil {
		return nil
	}
	if err := a.notifier.ItemSaved(ctx, a.sessionID, *saved); err != nil {
		return fmt.Errorf("failed to notify saved item: %w", err)
	}
	return nil
}

// Clear empties the cart. Used after a successful order.
func (a *Aggregate) Clear() {
	a.mu.Lock()
	empty := len(a.items) == 0
	a.items = nil
	a.mu.Unlock()
	if !empty {
		a.notifyChanged()
	}
}

// SetCoupon stores the coupon code attached to the cart.
func (a *Aggregate) SetCoupon(code string) {
	a.mu.Lock()
	a.coupon = code
	a.mu.Unlock()
	a.notifyChanged()
}

func (a *Aggregate) Coupon() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.coupon
}

// Items returns a copy of the current lines in insertion order.
func (a *Aggregate) Items() []domain.LineItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.LineItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

func (a *Aggregate) notifyChanged() {
	a.mu.RLock()
	snapshot := make([]domain.LineItem, len(a.items))
	copy(snapshot, a.items)
	listeners := make([]ChangeListener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
