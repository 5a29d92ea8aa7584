package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/models"
	"github.com/tomanchart/backend/internal/store"
)

// stubStore is an in-memory Store used to exercise the services without Postgres.
// AppendPoints honors the all-or-nothing contract: a configured failure leaves the
// stored series untouched.
type stubStore struct {
	mu        sync.Mutex
	points    []models.PricePoint
	nextID    uint64
	appendErr error
}

var _ store.Store = (*stubStore)(nil)

// seed inserts a point directly with an explicit timestamp, bypassing ingestion.
func (s *stubStore) seed(cur currency.Currency, price int64, observedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.points = append(s.points, models.PricePoint{
		ID:         s.nextID,
		Currency:   cur,
		Price:      price,
		ObservedAt: observedAt,
	})
}

func (s *stubStore) AppendPoints(_ context.Context, points []models.PricePoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return 0, s.appendErr
	}
	for _, p := range points {
		if p.Price <= 0 {
			return 0, fmt.Errorf("%w: %s=%d", store.ErrNonPositivePrice, p.Currency, p.Price)
		}
	}

	observedAt := time.Now().UTC()
	for _, p := range points {
		s.nextID++
		p.ID = s.nextID
		p.ObservedAt = observedAt
		s.points = append(s.points, p)
	}
	return len(points), nil
}

func (s *stubStore) LatestPoint(_ context.Context, cur currency.Currency) (*models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.PricePoint
	for i := range s.points {
		p := s.points[i]
		if p.Currency != cur {
			continue
		}
		if latest == nil || p.ObservedAt.After(latest.ObservedAt) ||
			(p.ObservedAt.Equal(latest.ObservedAt) && p.ID > latest.ID) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *stubStore) PointsSince(_ context.Context, cur currency.Currency, since time.Time) ([]models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PricePoint
	for _, p := range s.points {
		if p.Currency == cur && !p.ObservedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *stubStore) EnsureSchema(context.Context) error {
	return nil
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}
