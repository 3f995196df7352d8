package bluetooth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultSightingLimit = 50
	maxSightingLimit     = 200
)

// SQLiteSightingRepository implements SightingRepository using SQLite.
type SQLiteSightingRepository struct {
	db *sql.DB
}

// NewSQLiteSightingRepository creates a new SQLite sighting repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteSightingRepository: Repository instance ready for use
func NewSQLiteSightingRepository(db *sql.DB) *SQLiteSightingRepository {
	return &SQLiteSightingRepository{db: db}
}

// RecordSighting inserts a new sighting row.
func (r *SQLiteSightingRepository) RecordSighting(ctx context.Context, scannerID, address, name string, rssi int) error {
	if scannerID == "" {
		return fmt.Errorf("scanner id is required")
	}
	if address == "" {
		return fmt.Errorf("address is required")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sightings (scanner_id, address, name, rssi) VALUES (?, ?, ?, ?)",
		scannerID,
		address,
		name,
		rssi,
	)
	if err != nil {
		return fmt.Errorf("inserting sighting: %w", err)
	}

	return nil
}

// GetSightings returns recent sightings for a device, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - address: Device address
//   - limit: Maximum entries to return (default 50, max 200)
func (r *SQLiteSightingRepository) GetSightings(ctx context.Context, address string, limit int) ([]Sighting, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if limit <= 0 {
		limit = defaultSightingLimit
	}
	if limit > maxSightingLimit {
		limit = maxSightingLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scanner_id, address, name, rssi, created_at
		 FROM sightings
		 WHERE address = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		address,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var s Sighting
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ScannerID, &s.Address, &s.Name, &s.RSSI, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sighting row: %w", err)
		}
		s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing sighting timestamp %q: %w", createdAt, err)
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sighting rows: %w", err)
	}

	return sightings, nil
}

// PruneBefore deletes sightings recorded before the cutoff.
func (r *SQLiteSightingRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sightings WHERE created_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning sightings: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned sightings: %w", err)
	}
	return removed, nil
}
