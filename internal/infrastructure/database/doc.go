// Package database provides SQLite connectivity for Gray Logic Bluetooth.
//
// This package manages:
//   - Opening the database file with WAL mode and busy timeout
//   - Schema migrations from embedded SQL files
//   - Health checks and lifecycle management
//
// The sighting history repository (internal/bluetooth) runs its queries
// against the connection opened here.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/bluetooth.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
