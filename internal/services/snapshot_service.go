package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rahul-epicap/valuation-agent/internal/dataprocessing"
	"github.com/rahul-epicap/valuation-agent/internal/store"
)

// SnapshotService handles workbook ingestion and snapshot lifecycle.
type SnapshotService struct {
	repo   store.SnapshotRepo
	logger *slog.Logger
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(repo store.SnapshotRepo, logger *slog.Logger) *SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotService{
		repo:   repo,
		logger: logger,
	}
}

// Upload parses an uploaded workbook and persists it as a new snapshot.
// When name is empty one is derived from the filename and upload time.
func (s *SnapshotService) Upload(ctx context.Context, filename, name string, r io.Reader) (*store.Snapshot, error) {
	if !validWorkbookName(filename) {
		return nil, fmt.Errorf("%w: expected .xlsx or .xls, got %q", ErrInvalidUpload, filename)
	}

	dataset, err := dataprocessing.ParseWorkbook(r, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkbookParse, err)
	}
	if len(dataset.Tickers) == 0 {
		return nil, fmt.Errorf("%w: no usable ticker data found", ErrWorkbookParse)
	}

	if name == "" {
		name = fmt.Sprintf("%s (%s)", filename, time.Now().UTC().Format("2006-01-02 15:04"))
	}

	// industry_count is the number of distinct industries, not mappings
	industrySet := make(map[string]struct{}, len(dataset.Industries))
	for _, industry := range dataset.Industries {
		industrySet[industry] = struct{}{}
	}

	snap := &store.Snapshot{
		Name:           name,
		SourceFilename: filename,
		TickerCount:    len(dataset.Tickers),
		DateCount:      len(dataset.Dates),
		IndustryCount:  len(industrySet),
		Dataset:        dataset,
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "snapshot created",
		"snapshot_id", snap.ID,
		"name", snap.Name,
		"tickers", snap.TickerCount,
		"dates", snap.DateCount,
		"industries", snap.IndustryCount,
	)

	return snap, nil
}

// List returns snapshot metadata, newest first.
func (s *SnapshotService) List(ctx context.Context) ([]store.SnapshotMeta, error) {
	metas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if metas == nil {
		metas = []store.SnapshotMeta{}
	}
	return metas, nil
}

// Get returns a snapshot with its full dataset.
func (s *SnapshotService) Get(ctx context.Context, id int64) (*store.Snapshot, error) {
	return s.repo.Get(ctx, id)
}

// Latest returns the most recently created snapshot.
func (s *SnapshotService) Latest(ctx context.Context) (*store.Snapshot, error) {
	return s.repo.Latest(ctx)
}

// Delete removes a snapshot by ID.
func (s *SnapshotService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "snapshot deleted", "snapshot_id", id)
	return nil
}

func validWorkbookName(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}
