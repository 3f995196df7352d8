package bluetooth

import (
	"context"
	"time"
)

// Sighting represents a single observation of a device by a scanner.
//
// Sightings are an audit trail of presence over time, separate from the
// advertisement checkpoint which only keeps the latest observation.
type Sighting struct {
	// ID is the auto-incremented primary key for the sighting row.
	ID int64 `json:"id"`

	// ScannerID is the scanner that made the observation.
	ScannerID string `json:"scanner_id"`

	// Address is the observed device address.
	Address string `json:"address"`

	// Name is the device name at observation time, if known.
	Name string `json:"name"`

	// RSSI is the signal strength of the observation in dBm.
	RSSI int `json:"rssi"`

	// CreatedAt is the observation timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// SightingRepository stores and retrieves device sighting history.
//
// Implementations must be thread-safe and use UTC timestamps.
type SightingRepository interface {
	// RecordSighting records a device observation.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - scannerID: Scanner that made the observation
	//   - address: Observed device address
	//   - name: Device name, may be empty
	//   - rssi: Signal strength in dBm
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	RecordSighting(ctx context.Context, scannerID, address, name string, rssi int) error

	// GetSightings returns recent sightings for a device, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - address: Device address
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []Sighting: Sightings ordered newest first
	//   - error: nil on success, otherwise the underlying persistence error
	GetSightings(ctx context.Context, address string, limit int) ([]Sighting, error)

	// PruneBefore deletes sightings recorded before the cutoff.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - cutoff: Sightings older than this are removed
	//
	// Returns:
	//   - int64: Number of rows removed
	//   - error: nil on success, otherwise the underlying persistence error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
