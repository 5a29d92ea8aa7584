/**
 * @description
 * Downsampling query engine for price charts.
 * Selects the lookback window and aggregation from the resolved period, fetches the
 * raw series through the store, and buckets it into fixed-width averages.
 *
 * @dependencies
 * - backend/internal/store
 * - backend/internal/period
 * - github.com/redis/go-redis/v9: 30s cache-aside on assembled charts
 *
 * @notes
 * - Buckets are epoch-aligned UTC truncations (hour, 6h, calendar day). Bucket price
 *   is the arithmetic mean rounded half-up; empty buckets are omitted.
 * - Read-only and safe to call concurrently with ingestion.
 */

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/logger"
	"github.com/tomanchart/backend/internal/models"
	"github.com/tomanchart/backend/internal/period"
	"github.com/tomanchart/backend/internal/store"
)

// Charts change at ingestion-tick granularity, so a short TTL is enough.
const chartCacheTTL = 30 * time.Second

// ChartPoint is one reported (timestamp, price) pair. For aggregated modes the
// timestamp is the bucket start.
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     int64     `json:"price"`
}

// Chart is the assembled result for one (currency, period) query.
type Chart struct {
	Currency currency.Currency `json:"currency"`
	Period   string            `json:"period"`
	Latest   *ChartPoint       `json:"latest"`
	Series   []ChartPoint      `json:"series"`
}

// LatestPrice is the most recent observation per currency; fields are nil when the
// currency has no data yet.
type LatestPrice struct {
	Currency  currency.Currency `json:"currency"`
	Price     *int64            `json:"price"`
	Timestamp *time.Time        `json:"timestamp"`
}

type ChartService struct {
	Store store.Store
	Redis *redis.Client
	Now   func() time.Time // injectable clock for tests
}

func NewChartService(st store.Store, rdb *redis.Client) *ChartService {
	return &ChartService{Store: st, Redis: rdb, Now: time.Now}
}

// GetChart returns the latest point and the ordered series for the resolved period.
// An empty window yields an empty series, not an error.
func (s *ChartService) GetChart(ctx context.Context, cur currency.Currency, p period.Period) (*Chart, error) {
	cacheKey := fmt.Sprintf("chart:%s:%s", cur, p.Label)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var chart Chart
			if err := json.Unmarshal(cached, &chart); err == nil {
				return &chart, nil
			}
		}
	}

	latest, err := s.Store.LatestPoint(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest point: %w", err)
	}

	since := s.Now().UTC().Add(-p.Lookback)
	points, err := s.Store.PointsSince(ctx, cur, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price window: %w", err)
	}

	chart := &Chart{
		Currency: cur,
		Period:   p.Label,
		Series:   buildSeries(points, p.Mode),
	}
	if latest != nil {
		chart.Latest = &ChartPoint{Timestamp: latest.ObservedAt, Price: latest.Price}
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(chart); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, payload, chartCacheTTL).Err(); err != nil {
				logger.Error("failed to cache chart %s: %v", cacheKey, err)
			}
		}
	}

	return chart, nil
}

// GetLatestPrices returns the most recent point for every tracked currency.
func (s *ChartService) GetLatestPrices(ctx context.Context) ([]LatestPrice, error) {
	out := make([]LatestPrice, 0, len(currency.All()))
	for _, cur := range currency.All() {
		point, err := s.Store.LatestPoint(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch latest %s point: %w", cur, err)
		}
		entry := LatestPrice{Currency: cur}
		if point != nil {
			price := point.Price
			ts := point.ObservedAt
			entry.Price = &price
			entry.Timestamp = &ts
		}
		out = append(out, entry)
	}
	return out, nil
}

func buildSeries(points []models.PricePoint, mode period.Mode) []ChartPoint {
	if mode == period.ModeRaw {
		series := make([]ChartPoint, len(points))
		for i, p := range points {
			series[i] = ChartPoint{Timestamp: p.ObservedAt, Price: p.Price}
		}
		return series
	}
	return bucketSeries(points, mode.BucketWidth())
}

// bucketSeries partitions an ascending series into fixed-width buckets aligned to
// the Unix epoch (which for hour/6h/day widths means UTC midnight boundaries) and
// reports each bucket's mean, rounded half-up. Buckets without points never appear.
func bucketSeries(points []models.PricePoint, width time.Duration) []ChartPoint {
	type bucket struct {
		start time.Time
		sum   int64
		count int64
	}

	var buckets []bucket
	for _, p := range points {
		start := p.ObservedAt.UTC().Truncate(width)
		if n := len(buckets); n > 0 && buckets[n-1].start.Equal(start) {
			buckets[n-1].sum += p.Price
			buckets[n-1].count++
			continue
		}
		buckets = append(buckets, bucket{start: start, sum: p.Price, count: 1})
	}

	series := make([]ChartPoint, len(buckets))
	for i, b := range buckets {
		mean := int64(math.Round(float64(b.sum) / float64(b.count)))
		series[i] = ChartPoint{Timestamp: b.start, Price: mean}
	}
	return series
}
