package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

// ErrNotFound is returned when no snapshot matches the requested ID, or the
// store holds no snapshots at all.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one ingested workbook: its parsed dataset plus upload metadata.
type Snapshot struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	CreatedAt      time.Time          `json:"created_at"`
	SourceFilename string             `json:"source_filename"`
	TickerCount    int                `json:"ticker_count"`
	DateCount      int                `json:"date_count"`
	IndustryCount  int                `json:"industry_count"`
	Dataset        *valuation.Dataset `json:"-"`
}

// SnapshotMeta is the listing view of a snapshot without the dataset payload.
type SnapshotMeta struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	SourceFilename string    `json:"source_filename"`
	TickerCount    int       `json:"ticker_count"`
	DateCount      int       `json:"date_count"`
	IndustryCount  int       `json:"industry_count"`
}

// SnapshotRepo persists workbook snapshots.
type SnapshotRepo interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, id int64) (*Snapshot, error)
	Latest(ctx context.Context) (*Snapshot, error)
	List(ctx context.Context) ([]SnapshotMeta, error)
	Delete(ctx context.Context, id int64) error
}

// snapshotRepo implements SnapshotRepo for PostgreSQL
type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo creates a PostgreSQL snapshot repository
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) SnapshotRepo {
	return &snapshotRepo{
		db:      db,
		timeout: timeout,
	}
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id              BIGSERIAL PRIMARY KEY,
	name            VARCHAR(255) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	dashboard_data  JSONB NOT NULL,
	source_filename VARCHAR(255),
	ticker_count    INTEGER,
	date_count      INTEGER,
	industry_count  INTEGER
)`

// EnsureSchema creates the snapshots table if it does not exist.
func (r *snapshotRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to ensure snapshot schema: %w", err)
	}
	return nil
}

// Save inserts a new snapshot and fills in its assigned ID and timestamp.
func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if snap.Dataset == nil {
		return fmt.Errorf("snapshot dataset is required")
	}

	payload, err := json.Marshal(snap.Dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	query := `
		INSERT INTO snapshots (name, dashboard_data, source_filename, ticker_count, date_count, industry_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.db.QueryRowxContext(ctx, query,
		snap.Name, payload, snap.SourceFilename,
		snap.TickerCount, snap.DateCount, snap.IndustryCount).
		Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Get retrieves a snapshot with its full dataset by ID.
func (r *snapshotRepo) Get(ctx context.Context, id int64) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, created_at, dashboard_data, source_filename, ticker_count, date_count, industry_count
		FROM snapshots
		WHERE id = $1`

	return r.scanSnapshot(r.db.QueryRowxContext(ctx, query, id))
}

// Latest retrieves the most recently created snapshot.
func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, created_at, dashboard_data, source_filename, ticker_count, date_count, industry_count
		FROM snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	return r.scanSnapshot(r.db.QueryRowxContext(ctx, query))
}

// List returns snapshot metadata, newest first, without dataset payloads.
func (r *snapshotRepo) List(ctx context.Context) ([]SnapshotMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, created_at, source_filename, ticker_count, date_count, industry_count
		FROM snapshots
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var metas []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var sourceFilename sql.NullString
		var tickerCount, dateCount, industryCount sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &sourceFilename,
			&tickerCount, &dateCount, &industryCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		m.SourceFilename = sourceFilename.String
		m.TickerCount = int(tickerCount.Int64)
		m.DateCount = int(dateCount.Int64)
		m.IndustryCount = int(industryCount.Int64)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return metas, nil
}

// Delete removes a snapshot by ID.
func (r *snapshotRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *snapshotRepo) scanSnapshot(row *sqlx.Row) (*Snapshot, error) {
	var snap Snapshot
	var payload []byte
	var sourceFilename sql.NullString
	var tickerCount, dateCount, industryCount sql.NullInt64

	err := row.Scan(&snap.ID, &snap.Name, &snap.CreatedAt, &payload,
		&sourceFilename, &tickerCount, &dateCount, &industryCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap.SourceFilename = sourceFilename.String
	snap.TickerCount = int(tickerCount.Int64)
	snap.DateCount = int(dateCount.Int64)
	snap.IndustryCount = int(industryCount.Int64)

	var ds valuation.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	snap.Dataset = &ds

	return &snap, nil
}
