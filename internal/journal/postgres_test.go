package journal

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_checkout/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*PostgresJournal, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	j, err := NewPostgresJournal(creds)
	require.NoError(t, err)

	err = j.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		j.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return j, cleanup
}

func TestLookup_NotFound(t *testing.T) {
	j, cleanup := setupTestDB(t)
	defer cleanup()

	rec, err := j.Lookup(context.Background(), "nonexistent-key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Nil(t, rec)
}

func TestStoreAndLookup(t *testing.T) {
	j, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	key := uuid.New().String()
	rec := &Record{
		IdempotencyKey: key,
		SessionID:      "session-1",
		Outcome:        domain.OutcomeSuccess,
		OrderNumber:    "ORD-42",
		Snapshot:       []byte(`{"items":[]}`),
		TotalAmount:    "99.99",
	}

	require.NoError(t, j.Store(ctx, rec))

	got, err := j.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "ORD-42", got.OrderNumber)
	assert.Equal(t, "99.99", got.TotalAmount)
}

func TestStore_UpsertsOnSameKey(t *testing.T) {
	j, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	key := uuid.New().String()

	require.NoError(t, j.Store(ctx, &Record{
		IdempotencyKey: key,
		SessionID:      "session-1",
		Outcome:        domain.OutcomeTransientFailure,
		ErrorCode:      "timeout",
		Snapshot:       []byte(`{}`),
		TotalAmount:    "10.00",
	}))

	require.NoError(t, j.Store(ctx, &Record{
		IdempotencyKey: key,
		SessionID:      "session-1",
		Outcome:        domain.OutcomeSuccess,
		OrderNumber:    "ORD-7",
		Snapshot:       []byte(`{}`),
		TotalAmount:    "10.00",
	}))

	got, err := j.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "ORD-7", got.OrderNumber)
}

func TestContextCancellation(t *testing.T) {
	j, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := j.Lookup(ctx, "any-key")
	assert.Error(t, err)
}

func TestMemoryJournal_RoundTrip(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	_, err := j.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, j.Store(ctx, &Record{
		IdempotencyKey: "key-1",
		SessionID:      "session-1",
		Outcome:        domain.OutcomeFatalFailure,
		ErrorCode:      "out_of_stock",
	}))

	got, err := j.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFatalFailure, got.Outcome)

	result := got.Result()
	assert.Equal(t, domain.OutcomeFatalFailure, result.Outcome)
	assert.False(t, result.Retryable)
}
