package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresJournal stores submission records in postgres so duplicate-submit
// protection survives process restarts.
type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(cred *Credentials) (*PostgresJournal, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(5)
	return &PostgresJournal{db: db}, nil
}

func (j *PostgresJournal) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(j.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}

func (j *PostgresJournal) Lookup(ctx context.Context, idempotencyKey string) (*Record, error) {
	query := `SELECT idempotency_key, session_id, outcome, order_number, error_code, snapshot, total_amount, created_at, updated_at
	          FROM submission_records WHERE idempotency_key = $1`

	var rec Record
	var orderNumber, errorCode sql.NullString
	err := j.db.QueryRowContext(ctx, query, idempotencyKey).Scan(
		&rec.IdempotencyKey,
		&rec.SessionID,
		&rec.Outcome,
		&orderNumber,
		&errorCode,
		&rec.Snapshot,
		&rec.TotalAmount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query submission record: %w", err)
	}

	rec.OrderNumber = orderNumber.String
	rec.ErrorCode = errorCode.String
	return &rec, nil
}

func (j *PostgresJournal) Store(ctx context.Context, rec *Record) error {
	query := `INSERT INTO submission_records (idempotency_key, session_id, outcome, order_number, error_code, snapshot, total_amount, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	          ON CONFLICT (idempotency_key) DO UPDATE SET
	              outcome = EXCLUDED.outcome,
	              order_number = EXCLUDED.order_number,
	              error_code = EXCLUDED.error_code,
	              updated_at = NOW()`

	_, err := j.db.ExecContext(ctx, query,
		rec.IdempotencyKey,
		rec.SessionID,
		string(rec.Outcome),
		nullable(rec.OrderNumber),
		nullable(rec.ErrorCode),
		rec.Snapshot,
		rec.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to store submission record: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
