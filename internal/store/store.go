/**
 * @description
 * Persistence contract for the price time series.
 * The series is append-only: the store exposes exactly the operations the rest of
 * the system needs (append a batch atomically, latest point, window fetch) so the
 * query engine and ingestion pipeline can be exercised against a stub in tests.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/models"
)

// ErrNonPositivePrice is returned when a batch contains a zero or negative price.
// The ingestion pipeline filters these before committing; the store refuses them
// defensively so bad values can never reach disk.
var ErrNonPositivePrice = errors.New("refusing to persist non-positive price")

// Store is the persisted time-series contract.
type Store interface {
	// AppendPoints writes the batch inside one atomic transaction, stamping every
	// point with the same observation time. Either all points persist or none do.
	AppendPoints(ctx context.Context, points []models.PricePoint) (int, error)

	// LatestPoint returns the most recent point for the currency, or nil when the
	// currency has no data at all.
	LatestPoint(ctx context.Context, cur currency.Currency) (*models.PricePoint, error)

	// PointsSince returns points with observed_at >= since, ascending by time with
	// insertion order breaking ties.
	PointsSince(ctx context.Context, cur currency.Currency, since time.Time) ([]models.PricePoint, error)

	// EnsureSchema provisions the prices table and its index if absent.
	EnsureSchema(ctx context.Context) error
}
