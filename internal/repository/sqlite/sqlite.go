package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		device TEXT NOT NULL,
		collected_at TEXT NOT NULL,
		error_count INTEGER NOT NULL DEFAULT 0,
		data JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_device ON snapshots(device, collected_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveSnapshot stores snap, assigning an ID and timestamp when missing
func (r *Repository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Device == "" {
		return errors.New("snapshot has no device")
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = time.Now()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, device, collected_at, error_count, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device = excluded.device,
			collected_at = excluded.collected_at,
			error_count = excluded.error_count,
			data = excluded.data
	`, snap.ID, snap.Device, formatTime(snap.CollectedAt), len(snap.Errors), data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads a snapshot by ID
func (r *Repository) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return snap, nil
}

// LatestSnapshot loads the most recent snapshot of device
func (r *Repository) LatestSnapshot(ctx context.Context, device string) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT data FROM snapshots
		WHERE device = ?
		ORDER BY collected_at DESC, rowid DESC
		LIMIT 1
	`, device)
	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", device, err)
	}
	return snap, nil
}

// ListSnapshots returns up to limit snapshots of device, newest first.
// A limit of zero or less means no limit.
func (r *Repository) ListSnapshots(ctx context.Context, device string, limit int) ([]*domain.Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM snapshots
		WHERE device = ?
		ORDER BY collected_at DESC, rowid DESC
		LIMIT ?
	`, device, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListDevices summarizes every device that has snapshots
func (r *Repository) ListDevices(ctx context.Context) ([]repository.DeviceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device, COUNT(*), MAX(collected_at)
		FROM snapshots
		GROUP BY device
		ORDER BY device
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var out []repository.DeviceSummary
	for rows.Next() {
		var (
			s    repository.DeviceSummary
			last string
		)
		if err := rows.Scan(&s.Device, &s.Snapshots, &last); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		if s.LastCollected, err = parseTime(last); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSnapshots removes every snapshot of device
func (r *Repository) DeleteSnapshots(ctx context.Context, device string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE device = ?`, device)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return res.RowsAffected()
}

// PruneSnapshots deletes all but the newest keep snapshots of device
func (r *Repository) PruneSnapshots(ctx context.Context, device string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE device = ? AND id NOT IN (
			SELECT id FROM snapshots
			WHERE device = ?
			ORDER BY collected_at DESC, rowid DESC
			LIMIT ?
		)
	`, device, device, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
