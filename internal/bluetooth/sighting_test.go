package bluetooth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// openSightingDB creates an in-memory database with the sightings schema.
func openSightingDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sightings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scanner_id TEXT NOT NULL,
			address TEXT NOT NULL,
			name TEXT,
			rssi INTEGER,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)
	`)
	if err != nil {
		t.Fatalf("creating sightings table: %v", err)
	}
	return db
}

// TestRecordSighting verifies inserts and required-field checks.
func TestRecordSighting(t *testing.T) {
	repo := NewSQLiteSightingRepository(openSightingDB(t))
	ctx := context.Background()

	if err := repo.RecordSighting(ctx, "scanner-one", "AA:BB:CC:DD:EE:FF", "Sensor", -60); err != nil {
		t.Fatalf("RecordSighting() error = %v", err)
	}

	if err := repo.RecordSighting(ctx, "", "AA:BB:CC:DD:EE:FF", "Sensor", -60); err == nil {
		t.Error("RecordSighting() with empty scanner id should error")
	}
	if err := repo.RecordSighting(ctx, "scanner-one", "", "Sensor", -60); err == nil {
		t.Error("RecordSighting() with empty address should error")
	}
}

// TestGetSightings verifies retrieval order and limit handling.
func TestGetSightings(t *testing.T) {
	repo := NewSQLiteSightingRepository(openSightingDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rssi := -50 - i
		if err := repo.RecordSighting(ctx, "scanner-one", "AA:BB:CC:DD:EE:FF", "Sensor", rssi); err != nil {
			t.Fatalf("RecordSighting() error = %v", err)
		}
	}
	// A different device should not appear in the results.
	if err := repo.RecordSighting(ctx, "scanner-one", "11:22:33:44:55:66", "Other", -80); err != nil {
		t.Fatalf("RecordSighting() error = %v", err)
	}

	sightings, err := repo.GetSightings(ctx, "AA:BB:CC:DD:EE:FF", 0)
	if err != nil {
		t.Fatalf("GetSightings() error = %v", err)
	}
	if len(sightings) != 5 {
		t.Fatalf("got %d sightings, want 5", len(sightings))
	}

	// Newest first: the last insert (rssi -54) leads.
	if sightings[0].RSSI != -54 {
		t.Errorf("first sighting rssi = %d, want -54 (newest)", sightings[0].RSSI)
	}
	for _, s := range sightings {
		if s.Address != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("sighting for wrong device: %s", s.Address)
		}
		if s.ScannerID != "scanner-one" {
			t.Errorf("scanner id = %q", s.ScannerID)
		}
		if s.CreatedAt.IsZero() {
			t.Error("created_at not populated")
		}
	}

	limited, err := repo.GetSightings(ctx, "AA:BB:CC:DD:EE:FF", 2)
	if err != nil {
		t.Fatalf("GetSightings() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d sightings with limit 2, want 2", len(limited))
	}

	if _, err := repo.GetSightings(ctx, "", 10); err == nil {
		t.Error("GetSightings() with empty address should error")
	}
}

// TestGetSightingsUnknownDevice verifies an unseen address returns empty.
func TestGetSightingsUnknownDevice(t *testing.T) {
	repo := NewSQLiteSightingRepository(openSightingDB(t))

	sightings, err := repo.GetSightings(context.Background(), "FF:FF:FF:FF:FF:FF", 10)
	if err != nil {
		t.Fatalf("GetSightings() error = %v", err)
	}
	if len(sightings) != 0 {
		t.Errorf("got %d sightings for unknown device, want 0", len(sightings))
	}
}

// TestPruneBefore verifies retention deletes old rows and keeps new ones.
func TestPruneBefore(t *testing.T) {
	db := openSightingDB(t)
	repo := NewSQLiteSightingRepository(db)
	ctx := context.Background()

	// One old row inserted directly with a back-dated timestamp.
	old := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	_, err := db.Exec(
		"INSERT INTO sightings (scanner_id, address, name, rssi, created_at) VALUES (?, ?, ?, ?, ?)",
		"scanner-one", "AA:BB:CC:DD:EE:FF", "Sensor", -60, old,
	)
	if err != nil {
		t.Fatalf("inserting old sighting: %v", err)
	}
	if err := repo.RecordSighting(ctx, "scanner-one", "AA:BB:CC:DD:EE:FF", "Sensor", -61); err != nil {
		t.Fatalf("RecordSighting() error = %v", err)
	}

	removed, err := repo.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("PruneBefore() removed = %d, want 1", removed)
	}

	remaining, err := repo.GetSightings(ctx, "AA:BB:CC:DD:EE:FF", 10)
	if err != nil {
		t.Fatalf("GetSightings() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("got %d sightings after prune, want 1", len(remaining))
	}
}
