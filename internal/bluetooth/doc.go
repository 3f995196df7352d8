// Package bluetooth maintains advertisement state for remote Bluetooth scanners.
//
// This package manages:
//   - The latest observed advertisement per device per scanner
//   - A debounced JSON checkpoint of scanner state for warm restarts
//   - TTL-based expiry of stale advertisements at load time
//   - Monotonic/wall-clock timestamp reconciliation across restarts
//   - Advertisement ingest from remote scanners over MQTT
//   - Sighting history persistence and RSSI telemetry
//
// # Architecture
//
// Remote scanners (ESP32 proxies, satellite adapters) publish observed
// advertisements to graylogic/bluetooth/{scanner_id}/advertisement. The
// Bridge decodes each message, updates its live per-scanner state, and
// checkpoints that state through the AdvertisementStore:
//
//	Remote Scanner → MQTT Broker → Bridge → AdvertisementStore → checkpoint file
//	                                  ├→ SightingRepository (SQLite)
//	                                  └→ TelemetryWriter (InfluxDB)
//
// # Time Handling
//
// Advertisement timestamps are monotonic while resident in memory so that
// freshness comparisons survive wall-clock adjustments. The checkpoint file
// stores wall-clock timestamps so they remain meaningful across restarts.
// Conversion uses a single offset sampled once per batch; see clock.go.
//
// # Persistence
//
// The checkpoint is a best-effort cache, not a transactional store. Write
// failures are logged and never surfaced to callers; the worst case after
// an interrupted write is starting cold, which the live scanners repair by
// re-observing devices over the air.
package bluetooth
