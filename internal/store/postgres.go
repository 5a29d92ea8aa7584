/**
 * @description
 * PostgreSQL implementation of the Store contract using GORM.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn: Postgres error-code inspection for retryable failures
 *
 * @notes
 * - Appends run under a pg advisory lock so overlapping scheduled ingestion runs
 *   serialize instead of interleaving their observation timestamps.
 * - Deadlock (40P01) and serialization (40001) failures are retried with backoff;
 *   any other failure rolls the whole batch back.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgconn"
	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/logger"
	"github.com/tomanchart/backend/internal/models"
	"gorm.io/gorm"
)

// Application-wide advisory lock key for price ingestion.
const ingestLockKey = 815321

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AppendPoints(ctx context.Context, points []models.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	for _, p := range points {
		if p.Price <= 0 {
			return 0, fmt.Errorf("%w: %s=%d", ErrNonPositivePrice, p.Currency, p.Price)
		}
	}

	// One logical "now" for the whole batch so a run's points never interleave
	// with another run's within a currency.
	observedAt := time.Now().UTC()
	batch := make([]models.PricePoint, len(points))
	for i, p := range points {
		p.ID = 0
		p.ObservedAt = observedAt
		batch[i] = p
	}

	// Advisory locks are session-scoped: lock and unlock must run on the same
	// pooled connection, so pin one for the duration of the append.
	sqlDB, err := s.db.DB()
	if err != nil {
		return 0, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to pin connection for ingest lock: %w", err)
	}
	defer conn.Close()

	unlock, err := s.acquireIngestLock(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	defer unlock()

	const maxRetries = 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err == nil {
			return len(batch), nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		break
	}
	return 0, fmt.Errorf("failed to append price points: %w", err)
}

func (s *PostgresStore) LatestPoint(ctx context.Context, cur currency.Currency) (*models.PricePoint, error) {
	var point models.PricePoint
	err := s.db.WithContext(ctx).
		Where("currency = ?", cur).
		Order("observed_at DESC, id DESC").
		First(&point).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func (s *PostgresStore) PointsSince(ctx context.Context, cur currency.Currency, since time.Time) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := s.db.WithContext(ctx).
		Where("currency = ? AND observed_at >= ?", cur, since).
		Order("observed_at ASC, id ASC").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// EnsureSchema provisions the prices table and index. Kept as raw DDL in one
// transaction so a fresh deployment is one authenticated request away.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS prices (
				id BIGSERIAL PRIMARY KEY,
				currency VARCHAR(32) NOT NULL,
				price BIGINT NOT NULL,
				observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`).Error; err != nil {
			return err
		}
		return tx.Exec(`
			CREATE INDEX IF NOT EXISTS idx_prices_currency_observed_at
			ON prices (currency, observed_at DESC)
		`).Error
	})
}

// acquireIngestLock takes the advisory lock on the pinned connection, polling
// with a bounded number of attempts so a stuck holder cannot block the scheduler
// forever. The returned unlock runs on the same connection that took the lock.
func (s *PostgresStore) acquireIngestLock(ctx context.Context, conn *sql.Conn) (func(), error) {
	const maxAttempts = 30

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var locked bool
		err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", ingestLockKey).Scan(&locked)
		if err != nil {
			return nil, err
		}
		if locked {
			return func() {
				// Background context: the unlock must still run when the run's
				// context is already cancelled.
				var unlocked bool
				err := conn.QueryRowContext(context.Background(), "SELECT pg_advisory_unlock($1)", ingestLockKey).Scan(&unlocked)
				if err != nil {
					logger.Error("failed to release ingest lock: %v", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("ingest lock held by another run after %d attempts", maxAttempts)
}
