package bluetooth

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bluetooth/internal/infrastructure/storage"
)

// Checkpoint document identity. These values are part of the on-disk
// contract and must not change without a migration.
const (
	// StorageKey identifies the remote scanner checkpoint document.
	StorageKey = "bluetooth.remote_scanners"

	// StorageVersion is the checkpoint envelope version.
	StorageVersion = 1
)

// Logger is the minimal logging interface used by this package.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AdvertisementStore is the single in-memory source of truth for all
// scanners' advertisement data, with debounced durable persistence.
//
// Data is held in its serialized (JSON-safe) form; AdvertisementHistory
// deserializes on demand and SetAdvertisementHistory serializes on entry,
// so the resident state is always exactly what the next checkpoint writes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type AdvertisementStore struct {
	store *storage.Store

	mu   sync.RWMutex
	data map[string]storedScanner

	logger   Logger
	loggerMu sync.RWMutex
}

// NewAdvertisementStore creates an AdvertisementStore backed by the given
// checkpoint store. Call Load before reading.
func NewAdvertisementStore(store *storage.Store) *AdvertisementStore {
	return &AdvertisementStore{
		store: store,
		data:  make(map[string]storedScanner),
	}
}

// SetLogger sets a logger for load warnings and dropped entries.
func (s *AdvertisementStore) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// Load reads the checkpoint document and expires stale advertisements.
//
// Loading fails soft: a missing or corrupt checkpoint is treated as "no
// data" and logged, never returned as an error. The expiry sweep runs here,
// once per process lifetime, before any reads are accepted.
func (s *AdvertisementStore) Load() {
	var raw map[string]json.RawMessage
	found, err := s.store.Load(&raw)
	if err != nil {
		s.logWarn("discarding unreadable scanner checkpoint", "path", s.store.Path(), "error", err)
	}

	data := make(map[string]storedScanner, len(raw))
	if found && err == nil {
		for scannerID, doc := range raw {
			var scanner storedScanner
			if unmarshalErr := json.Unmarshal(doc, &scanner); unmarshalErr != nil {
				// A structurally malformed scanner document is dropped
				// wholesale; the live scanner repopulates it over the air.
				s.logWarn("discarding malformed scanner record",
					"scanner_id", scannerID,
					"error", unmarshalErr,
				)
				continue
			}
			data[scannerID] = scanner
		}
	}

	expireStale(data, time.Now())

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// Scanners returns all known scanner identifiers, sorted.
func (s *AdvertisementStore) Scanners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AdvertisementHistory returns the deserialized record for one scanner.
//
// Timestamps in the returned record are monotonic, converted through a
// single offset sample so the batch stays internally consistent. Malformed
// address entries are skipped individually and logged; well-formed entries
// deserialize normally.
//
// Returns:
//   - ScannerRecord: The scanner's advertisement state
//   - bool: false if the scanner is unknown
func (s *AdvertisementStore) AdvertisementHistory(scannerID string) (ScannerRecord, bool) {
	s.mu.RLock()
	stored, ok := s.data[scannerID]
	s.mu.RUnlock()

	if !ok {
		return ScannerRecord{}, false
	}

	rec, dropped := deserializeScanner(stored, newTimeConverter(time.Now()))
	if len(dropped) > 0 {
		s.logWarn("skipped malformed advertisement entries",
			"scanner_id", scannerID,
			"addresses", dropped,
		)
	}
	return rec, true
}

// SetAdvertisementHistory overwrites the full record for a scanner and
// schedules a debounced checkpoint write.
//
// Multiple calls within the debounce window coalesce into a single write
// reflecting the latest state at flush time. Persistence failures are
// logged by the checkpoint store and never surfaced here; this is a
// best-effort cache, not a transactional store.
//
// Parameters:
//   - scannerID: Logical scanner identity
//   - connectable: Whether this scanner's advertisements support connecting
//   - expireSeconds: TTL applied to this scanner's advertisements
//   - advertisements: Latest observation per device address
//   - timestamps: Last-seen time per device address, monotonic seconds
func (s *AdvertisementStore) SetAdvertisementHistory(
	scannerID string,
	connectable bool,
	expireSeconds float64,
	advertisements map[string]DeviceAdvertisement,
	timestamps map[string]float64,
) {
	rec := ScannerRecord{
		Connectable:    connectable,
		ExpireSeconds:  expireSeconds,
		Advertisements: advertisements,
		Timestamps:     timestamps,
	}

	stored, err := serializeScanner(rec, newTimeConverter(time.Now()))
	if err != nil {
		s.logWarn("dropping unserializable scanner record",
			"scanner_id", scannerID,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	s.data[scannerID] = stored
	s.mu.Unlock()

	s.store.DelaySave(s.snapshot)
}

// Flush writes any pending checkpoint immediately.
// Call during shutdown so the final state is not lost to the debounce window.
func (s *AdvertisementStore) Flush() error {
	return s.store.Flush()
}

// snapshot returns a copy of the resident state for the checkpoint writer.
// Values are never mutated in place (SetAdvertisementHistory replaces them
// wholesale), so a shallow copy is safe to hand off.
func (s *AdvertisementStore) snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[string]storedScanner, len(s.data))
	for id, scanner := range s.data {
		data[id] = scanner
	}
	return data
}

// expireStale removes advertisements older than their scanner's TTL, then
// removes scanners left with no advertisements. Ages are computed against
// the stored wall-clock timestamps, pre-conversion. O(total addresses).
func expireStale(data map[string]storedScanner, now time.Time) {
	wallNow := float64(now.UnixNano()) / float64(time.Second)

	for scannerID, scanner := range data {
		var expired []string
		for address, lastSeen := range scanner.Timestamps {
			if wallNow-lastSeen > scanner.ExpireSeconds {
				expired = append(expired, address)
			}
		}
		for _, address := range expired {
			delete(scanner.Advertisements, address)
			delete(scanner.Timestamps, address)
		}
		if len(scanner.Advertisements) == 0 {
			delete(data, scannerID)
		}
	}
}

// logWarn logs a warning if a logger is set.
func (s *AdvertisementStore) logWarn(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, args...)
	}
}
