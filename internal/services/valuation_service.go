package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rahul-epicap/valuation-agent/internal/store"
	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

// EstimateResponse is a composite valuation estimate annotated with the
// snapshot it was computed against.
type EstimateResponse struct {
	valuation.EstimateResult
	SnapshotID   int64  `json:"snapshot_id"`
	SnapshotDate string `json:"snapshot_date,omitempty"`
}

// ValuationService loads snapshot datasets and runs composite estimates
// against them. A single-entry cache avoids re-reading the same snapshot's
// JSONB payload on consecutive estimates.
type ValuationService struct {
	repo   store.SnapshotRepo
	logger *slog.Logger

	mu     sync.RWMutex
	cached *store.Snapshot
}

// NewValuationService creates a valuation service.
func NewValuationService(repo store.SnapshotRepo, logger *slog.Logger) *ValuationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValuationService{
		repo:   repo,
		logger: logger,
	}
}

// Estimate runs the composite valuation against the identified snapshot, or
// the latest snapshot when snapshotID is nil.
func (s *ValuationService) Estimate(ctx context.Context, snapshotID *int64, req valuation.EstimateRequest) (*EstimateResponse, error) {
	snap, err := s.loadSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := valuation.Estimate(snap.Dataset, req)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "valuation estimate computed",
		"snapshot_id", snap.ID,
		"ticker", req.Ticker,
		"duration", time.Since(start).String(),
	)

	resp := &EstimateResponse{
		EstimateResult: *result,
		SnapshotID:     snap.ID,
	}
	if !snap.CreatedAt.IsZero() {
		resp.SnapshotDate = snap.CreatedAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Dataset returns the dataset of the identified snapshot, or the latest
// snapshot's dataset when snapshotID is nil.
func (s *ValuationService) Dataset(ctx context.Context, snapshotID *int64) (*valuation.Dataset, error) {
	snap, err := s.loadSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return snap.Dataset, nil
}

// InvalidateCache drops the cached snapshot. Called after uploads and deletes
// so stale datasets never serve an estimate.
func (s *ValuationService) InvalidateCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *ValuationService) loadSnapshot(ctx context.Context, snapshotID *int64) (*store.Snapshot, error) {
	if snapshotID != nil {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil && cached.ID == *snapshotID {
			return cached, nil
		}

		snap, err := s.repo.Get(ctx, *snapshotID)
		if err != nil {
			return nil, err
		}
		s.cache(snap)
		return snap, nil
	}

	// The latest snapshot can change under us, so it is always re-fetched.
	snap, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(snap)
	return snap, nil
}

func (s *ValuationService) cache(snap *store.Snapshot) {
	s.mu.Lock()
	s.cached = snap
	s.mu.Unlock()
}
