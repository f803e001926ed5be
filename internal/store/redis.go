package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_checkout/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 30 * time.Minute,
	}
}

// RedisStore keeps drafts in redis with a TTL so abandoned checkouts expire
// on their own. Jitter on the TTL avoids synchronized expiry.
type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

type draftEnvelope struct {
	SchemaVersion int                   `json:"schema_version"`
	Draft         *domain.CheckoutDraft `json:"draft"`
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (*domain.CheckoutDraft, error) {
	data, err := r.client.Get(ctx, draftKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var envelope draftEnvelope
	if err2 := json.Unmarshal(data, &envelope); err2 != nil {
		return nil, ErrDraftCorrupt
	}
	if envelope.SchemaVersion != SchemaVersion || envelope.Draft == nil || !envelope.Draft.Step.Valid() {
		return nil, ErrDraftCorrupt
	}

	return envelope.Draft, nil
}

func (r *RedisStore) Save(ctx context.Context, draft *domain.CheckoutDraft) error {
	payload, err := json.Marshal(draftEnvelope{SchemaVersion: SchemaVersion, Draft: draft})
	if err != nil {
		return fmt.Errorf("marshal draft failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if errSet := r.client.Set(ctx, draftKey(draft.SessionID), payload, ttl).Err(); errSet != nil {
		return fmt.Errorf("redis set failed: %w", errSet)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("checkout:draft:%s", sessionID)
}
