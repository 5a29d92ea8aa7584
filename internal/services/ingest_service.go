/**
 * @description
 * Ingestion pipeline: one scheduled run extracts quotes from the upstream source,
 * filters unusable values, and commits the batch atomically.
 *
 * @dependencies
 * - backend/internal/bonbast
 * - backend/internal/store
 * - github.com/redis/go-redis/v9: post-commit snapshot publish for the live stream
 * - github.com/google/uuid: run ids for log correlation
 *
 * @notes
 * - A run never retries itself; the next scheduled tick is the retry.
 * - The post-commit publish is best-effort and never fails the run.
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tomanchart/backend/internal/bonbast"
	"github.com/tomanchart/backend/internal/logger"
	"github.com/tomanchart/backend/internal/models"
	"github.com/tomanchart/backend/internal/store"
)

// PriceUpdateChannel carries one JSON snapshot per committed ingestion run.
const PriceUpdateChannel = "prices:updates"

// RunState tracks one ingestion run through its lifecycle. Terminal states are
// RunExtractFailed, RunCommitFailed and RunCommitted.
type RunState int

const (
	RunIdle RunState = iota
	RunExtracting
	RunExtractFailed
	RunExtracted
	RunCommitting
	RunCommitFailed
	RunCommitted
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "IDLE"
	case RunExtracting:
		return "EXTRACTING"
	case RunExtractFailed:
		return "EXTRACT_FAILED"
	case RunExtracted:
		return "EXTRACTED"
	case RunCommitting:
		return "COMMITTING"
	case RunCommitFailed:
		return "COMMIT_FAILED"
	case RunCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

// RunResult is the terminal outcome of one ingestion run.
type RunResult struct {
	RunID    string
	State    RunState
	Inserted int
	Prices   []bonbast.Quote
	Err      error
}

// QuoteFetcher is the upstream source contract (implemented by bonbast.Client).
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context) ([]bonbast.Quote, error)
}

type IngestService struct {
	Store  store.Store
	Redis  *redis.Client
	Source QuoteFetcher
}

func NewIngestService(st store.Store, rdb *redis.Client, source QuoteFetcher) *IngestService {
	return &IngestService{Store: st, Redis: rdb, Source: source}
}

// Run executes one extract-then-commit cycle and returns its terminal state.
func (s *IngestService) Run(ctx context.Context) RunResult {
	runID := uuid.NewString()
	logger.Info("[ingest %s] %s", runID, RunExtracting)

	quotes, err := s.Source.FetchQuotes(ctx)
	if err != nil {
		logger.Error("[ingest %s] %s: %v", runID, RunExtractFailed, err)
		return RunResult{RunID: runID, State: RunExtractFailed, Err: err}
	}

	// Non-positive prices are unusable observations; drop them before commit.
	usable := make([]bonbast.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Price <= 0 {
			logger.Error("[ingest %s] discarding non-positive price %s=%d", runID, q.Currency, q.Price)
			continue
		}
		usable = append(usable, q)
	}
	if len(usable) == 0 {
		logger.Error("[ingest %s] %s: %v", runID, RunExtractFailed, bonbast.ErrNoQuotes)
		return RunResult{RunID: runID, State: RunExtractFailed, Err: bonbast.ErrNoQuotes}
	}
	logger.Info("[ingest %s] %s: %d quotes", runID, RunExtracted, len(usable))

	points := make([]models.PricePoint, len(usable))
	for i, q := range usable {
		points[i] = models.PricePoint{Currency: q.Currency, Price: q.Price}
	}

	logger.Info("[ingest %s] %s", runID, RunCommitting)
	inserted, err := s.Store.AppendPoints(ctx, points)
	if err != nil {
		logger.Error("[ingest %s] %s: %v", runID, RunCommitFailed, err)
		return RunResult{RunID: runID, State: RunCommitFailed, Err: err}
	}

	s.publishSnapshot(ctx, usable)

	logger.Info("[ingest %s] %s: inserted %d", runID, RunCommitted, inserted)
	return RunResult{RunID: runID, State: RunCommitted, Inserted: inserted, Prices: usable}
}

// priceSnapshot is the payload published to PriceUpdateChannel after a commit.
type priceSnapshot struct {
	ObservedAt time.Time       `json:"observed_at"`
	Prices     []bonbast.Quote `json:"prices"`
}

func (s *IngestService) publishSnapshot(ctx context.Context, quotes []bonbast.Quote) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(priceSnapshot{ObservedAt: time.Now().UTC(), Prices: quotes})
	if err != nil {
		return
	}
	if err := s.Redis.Publish(ctx, PriceUpdateChannel, payload).Err(); err != nil {
		logger.Error("failed to publish price snapshot: %v", err)
	}
}
