// Package storage provides a file-backed, versioned JSON checkpoint store.
//
// This package manages:
//   - A single JSON document per Store, wrapped in a versioned envelope
//   - Atomic writes (temp file + rename) so readers never see a torn file
//   - Debounced saves via a cancel-and-reschedule timer
//   - Fail-soft loading (a missing file is not an error)
//
// # Envelope Format
//
// Documents are wrapped so future layout changes can be migrated:
//
//	{
//	  "version": 1,
//	  "key": "bluetooth.remote_scanners",
//	  "data": { ... }
//	}
//
// # Debounced Saves
//
// DelaySave schedules a write after the configured delay. Each call cancels
// any pending write and restarts the countdown, so a burst of updates
// coalesces into a single write reflecting the state at flush time. The
// data callback runs when the timer fires, never at schedule time.
//
// Write failures during a debounced flush are logged and never surfaced to
// the caller that scheduled them; stores built on this package are caches,
// not transactional databases.
package storage
