// Package store persists checkout drafts between reloads. The host may run
// without persistence at all; the in-memory store covers that and tests.
package store

import (
	"context"
	"errors"

	"github.com/fjod/go_checkout/domain"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	// ErrDraftCorrupt marks a persisted record with an unrecognized shape,
	// schema version or step. Callers discard it and start at step 1.
	ErrDraftCorrupt = errors.New("persisted draft is corrupt or incompatible")
)

// SchemaVersion is bumped whenever the persisted draft layout changes in a
// way old readers cannot handle.
const SchemaVersion = 1

type DraftStore interface {
	Load(ctx context.Context, sessionID string) (*domain.CheckoutDraft, error)
	Save(ctx context.Context, draft *domain.CheckoutDraft) error
	Delete(ctx context.Context, sessionID string) error
}
