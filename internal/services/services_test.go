package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rahul-epicap/valuation-agent/internal/store"
	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeRepo is an in-memory SnapshotRepo with call counters.
type fakeRepo struct {
	snapshots map[int64]*store.Snapshot
	nextID    int64
	getCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{snapshots: make(map[int64]*store.Snapshot), nextID: 1}
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeRepo) Save(ctx context.Context, snap *store.Snapshot) error {
	snap.ID = f.nextID
	snap.CreatedAt = time.Now().UTC()
	f.nextID++
	f.snapshots[snap.ID] = snap
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*store.Snapshot, error) {
	f.getCalls++
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (f *fakeRepo) Latest(ctx context.Context) (*store.Snapshot, error) {
	var latest *store.Snapshot
	for _, snap := range f.snapshots {
		if latest == nil || snap.ID > latest.ID {
			latest = snap
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]store.SnapshotMeta, error) {
	var metas []store.SnapshotMeta
	for _, snap := range f.snapshots {
		metas = append(metas, store.SnapshotMeta{ID: snap.ID, Name: snap.Name})
	}
	return metas, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.snapshots[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.snapshots, id)
	return nil
}

func fptr(v float64) *float64 { return &v }

// testDataset builds a three-ticker universe that clears every filter gate.
func testDataset() *valuation.Dataset {
	series := func(er, rg, pe, xg, fe float64) valuation.MetricSeries {
		return valuation.MetricSeries{
			valuation.CodeEVRevenue:  []*float64{fptr(er)},
			valuation.CodeEVGP:       []*float64{nil},
			valuation.CodePE:         []*float64{fptr(pe)},
			valuation.CodeRevGrowth:  []*float64{fptr(rg)},
			valuation.CodeEPSGrowth:  []*float64{fptr(xg)},
			valuation.CodeForwardEPS: []*float64{fptr(fe)},
		}
	}
	return &valuation.Dataset{
		Dates:   []string{"2024-12-31"},
		Tickers: []string{"AAA", "BBB", "CCC"},
		Industries: map[string]string{
			"AAA": "Software",
			"BBB": "Software",
			"CCC": "Semis",
		},
		Metrics: map[string]valuation.MetricSeries{
			"AAA": series(5, 0.10, 20, 0.12, 4.0),
			"BBB": series(8, 0.20, 25, 0.18, 6.5),
			"CCC": series(11, 0.30, 30, 0.25, 2.2),
		},
	}
}

func seededRepo(t *testing.T) *fakeRepo {
	t.Helper()
	repo := newFakeRepo()
	require.NoError(t, repo.Save(context.Background(), &store.Snapshot{
		Name:    "seed",
		Dataset: testDataset(),
	}))
	return repo
}

func minimalWorkbook(t *testing.T) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "PE"))
	require.NoError(t, f.SetCellValue("PE", "C7", "AAA US Equity"))
	require.NoError(t, f.SetCellValue("PE", "D7", "BBB US Equity"))
	require.NoError(t, f.SetCellValue("PE", "B8", "2024-12-31"))
	require.NoError(t, f.SetCellValue("PE", "C8", 20.0))
	require.NoError(t, f.SetCellValue("PE", "D8", 25.0))

	_, err := f.NewSheet("Industries")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Industries", "A1", "Ticker"))
	require.NoError(t, f.SetCellValue("Industries", "B1", "Industry"))
	require.NoError(t, f.SetCellValue("Industries", "A2", "AAA"))
	require.NoError(t, f.SetCellValue("Industries", "B2", "Software"))
	require.NoError(t, f.SetCellValue("Industries", "A3", "BBB"))
	require.NoError(t, f.SetCellValue("Industries", "B3", "Software"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestSnapshotServiceUpload(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSnapshotService(repo, testLogger())

	snap, err := svc.Upload(context.Background(), "bql_export.xlsx", "", minimalWorkbook(t))
	require.NoError(t, err)

	assert.NotZero(t, snap.ID)
	assert.Equal(t, "bql_export.xlsx", snap.SourceFilename)
	assert.Equal(t, 2, snap.TickerCount)
	assert.Equal(t, 1, snap.DateCount)
	// Two mappings but one distinct industry
	assert.Equal(t, 1, snap.IndustryCount)
	assert.True(t, strings.HasPrefix(snap.Name, "bql_export.xlsx ("), "derived name: %q", snap.Name)
}

func TestSnapshotServiceUploadRejectsExtension(t *testing.T) {
	svc := NewSnapshotService(newFakeRepo(), testLogger())

	_, err := svc.Upload(context.Background(), "data.csv", "", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrInvalidUpload)
}

func TestSnapshotServiceUploadRejectsGarbage(t *testing.T) {
	svc := NewSnapshotService(newFakeRepo(), testLogger())

	_, err := svc.Upload(context.Background(), "data.xlsx", "", bytes.NewReader([]byte("nope")))
	require.ErrorIs(t, err, ErrWorkbookParse)
}

func TestSnapshotServiceDelete(t *testing.T) {
	repo := seededRepo(t)
	svc := NewSnapshotService(repo, testLogger())

	require.NoError(t, svc.Delete(context.Background(), 1))
	require.ErrorIs(t, svc.Delete(context.Background(), 1), store.ErrNotFound)
}

func TestValuationServiceEstimateLatest(t *testing.T) {
	repo := seededRepo(t)
	svc := NewValuationService(repo, testLogger())

	resp, err := svc.Estimate(context.Background(), nil, valuation.EstimateRequest{
		Ticker:        "BBB",
		RevenueGrowth: 0.25,
		EPSGrowth:     0.20,
		DiscountRate:  0.10,
		FadePeriod:    5,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.SnapshotID)
	assert.NotEmpty(t, resp.SnapshotDate)
	assert.Equal(t, "BBB", resp.Ticker)
	assert.Len(t, resp.Regression, 3)
}

func TestValuationServiceEstimateByIDUsesCache(t *testing.T) {
	repo := seededRepo(t)
	svc := NewValuationService(repo, testLogger())

	id := int64(1)
	req := valuation.EstimateRequest{RevenueGrowth: 0.10, EPSGrowth: 0.10, DiscountRate: 0.10, FadePeriod: 5}

	_, err := svc.Estimate(context.Background(), &id, req)
	require.NoError(t, err)
	_, err = svc.Estimate(context.Background(), &id, req)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.getCalls, "second estimate should hit the cache")

	svc.InvalidateCache()
	_, err = svc.Estimate(context.Background(), &id, req)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)
}

func TestValuationServiceEstimateErrors(t *testing.T) {
	t.Run("unknown snapshot", func(t *testing.T) {
		svc := NewValuationService(seededRepo(t), testLogger())
		id := int64(404)
		_, err := svc.Estimate(context.Background(), &id, valuation.EstimateRequest{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("empty store", func(t *testing.T) {
		svc := NewValuationService(newFakeRepo(), testLogger())
		_, err := svc.Estimate(context.Background(), nil, valuation.EstimateRequest{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown ticker", func(t *testing.T) {
		svc := NewValuationService(seededRepo(t), testLogger())
		_, err := svc.Estimate(context.Background(), nil, valuation.EstimateRequest{Ticker: "ZZZZ"})
		require.ErrorIs(t, err, valuation.ErrTickerNotFound)
	})
}

func TestHealthServiceWithoutDatabase(t *testing.T) {
	svc := NewHealthService("1.2.3", nil, testLogger())

	status := svc.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "1.2.3", status.Version)

	db, ok := status.Services["database"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "unconfigured", db.Status)

	info := svc.Info()
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
