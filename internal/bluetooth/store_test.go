package bluetooth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-bluetooth/internal/infrastructure/storage"
)

// newTestStore creates an advertisement store checkpointing into a temp
// directory. The returned storage path can be reused to simulate restarts.
func newTestStore(t *testing.T, path string, delay time.Duration) *AdvertisementStore {
	t.Helper()

	return NewAdvertisementStore(storage.New(storage.Config{
		Path:      path,
		Key:       StorageKey,
		Version:   StorageVersion,
		SaveDelay: delay,
	}))
}

// wallSecondsAgo returns a stored-form timestamp n seconds in the past.
func wallSecondsAgo(n float64) float64 {
	return float64(time.Now().UnixNano())/float64(time.Second) - n
}

// writeCheckpoint writes scanner documents directly to disk, bypassing the
// store, to set up load scenarios.
func writeCheckpoint(t *testing.T, path string, data map[string]storedScanner) {
	t.Helper()

	st := storage.New(storage.Config{Path: path, Key: StorageKey, Version: StorageVersion})
	if err := st.Save(data); err != nil {
		t.Fatalf("writing checkpoint fixture: %v", err)
	}
}

// storedFixture builds a single-address stored scanner record.
func storedFixture(t *testing.T, address string, expireSeconds, lastSeenWall float64) storedScanner {
	t.Helper()

	raw, err := encodeAdvertisement(testAdvertisement(address))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return storedScanner{
		Connectable:    true,
		ExpireSeconds:  expireSeconds,
		Advertisements: map[string]json.RawMessage{address: raw},
		Timestamps:     map[string]float64{address: lastSeenWall},
	}
}

// TestLoadMissingCheckpoint verifies a fresh start with no file.
func TestLoadMissingCheckpoint(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "bluetooth.json"), time.Second)

	store.Load()

	if ids := store.Scanners(); len(ids) != 0 {
		t.Errorf("Scanners() = %v, want empty", ids)
	}
	if _, ok := store.AdvertisementHistory("anything"); ok {
		t.Error("AdvertisementHistory() found = true on empty store")
	}
}

// TestSetAndGetHistory verifies a record written through the store reads
// back intact.
func TestSetAndGetHistory(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "bluetooth.json"), time.Second)
	store.Load()

	mono := MonotonicTime()
	store.SetAdvertisementHistory("scanner-one", true, 195,
		map[string]DeviceAdvertisement{"AA:BB:CC:DD:EE:FF": testAdvertisement("AA:BB:CC:DD:EE:FF")},
		map[string]float64{"AA:BB:CC:DD:EE:FF": mono},
	)

	rec, ok := store.AdvertisementHistory("scanner-one")
	if !ok {
		t.Fatal("AdvertisementHistory() found = false after Set")
	}
	if !rec.Connectable {
		t.Error("connectable not preserved")
	}
	if rec.ExpireSeconds != 195 {
		t.Errorf("expire seconds = %v, want 195", rec.ExpireSeconds)
	}
	if len(rec.Advertisements) != 1 {
		t.Fatalf("got %d advertisements, want 1", len(rec.Advertisements))
	}

	ts := rec.Timestamps["AA:BB:CC:DD:EE:FF"]
	if diff := ts - mono; diff > 0.5 || diff < -0.5 {
		t.Errorf("timestamp = %v, want about %v", ts, mono)
	}
}

// TestScannersSorted verifies scanner ids come back in sorted order.
func TestScannersSorted(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "bluetooth.json"), time.Second)
	store.Load()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		store.SetAdvertisementHistory(id, false, 60,
			map[string]DeviceAdvertisement{"AA:BB:CC:DD:EE:FF": testAdvertisement("AA:BB:CC:DD:EE:FF")},
			map[string]float64{"AA:BB:CC:DD:EE:FF": MonotonicTime()},
		)
	}

	ids := store.Scanners()
	want := []string{"alpha", "bravo", "charlie"}
	if len(ids) != len(want) {
		t.Fatalf("Scanners() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Scanners()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

// TestLoadExpiresStale verifies the load-time sweep: an advertisement
// older than its scanner's TTL is dropped, a fresher one survives.
func TestLoadExpiresStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")

	raw1, err := encodeAdvertisement(testAdvertisement("AA:AA:AA:AA:AA:AA"))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	raw2, err := encodeAdvertisement(testAdvertisement("BB:BB:BB:BB:BB:BB"))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	writeCheckpoint(t, path, map[string]storedScanner{
		"scanner-one": {
			ExpireSeconds: 60,
			Advertisements: map[string]json.RawMessage{
				"AA:AA:AA:AA:AA:AA": raw1, // 30s old, inside TTL
				"BB:BB:BB:BB:BB:BB": raw2, // 90s old, expired
			},
			Timestamps: map[string]float64{
				"AA:AA:AA:AA:AA:AA": wallSecondsAgo(30),
				"BB:BB:BB:BB:BB:BB": wallSecondsAgo(90),
			},
		},
	})

	store := newTestStore(t, path, time.Second)
	store.Load()

	rec, ok := store.AdvertisementHistory("scanner-one")
	if !ok {
		t.Fatal("scanner missing after load")
	}
	if _, ok := rec.Advertisements["AA:AA:AA:AA:AA:AA"]; !ok {
		t.Error("advertisement inside TTL should survive the sweep")
	}
	if _, ok := rec.Advertisements["BB:BB:BB:BB:BB:BB"]; ok {
		t.Error("expired advertisement should have been swept")
	}
	if _, ok := rec.Timestamps["BB:BB:BB:BB:BB:BB"]; ok {
		t.Error("expired timestamp should have been swept")
	}
}

// TestLoadDropsEmptyScanner verifies a scanner whose advertisements all
// expired is removed entirely.
func TestLoadDropsEmptyScanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")
	writeCheckpoint(t, path, map[string]storedScanner{
		"scanner-stale": storedFixture(t, "AA:AA:AA:AA:AA:AA", 60, wallSecondsAgo(3600)),
		"scanner-live":  storedFixture(t, "BB:BB:BB:BB:BB:BB", 60, wallSecondsAgo(5)),
	})

	store := newTestStore(t, path, time.Second)
	store.Load()

	ids := store.Scanners()
	if len(ids) != 1 || ids[0] != "scanner-live" {
		t.Errorf("Scanners() = %v, want [scanner-live]", ids)
	}
}

// TestLoadDropsMalformedScanner verifies a structurally malformed scanner
// document is dropped wholesale without affecting its neighbours.
func TestLoadDropsMalformedScanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")

	good, err := json.Marshal(storedFixture(t, "AA:AA:AA:AA:AA:AA", 60, wallSecondsAgo(5)))
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	st := storage.New(storage.Config{Path: path, Key: StorageKey, Version: StorageVersion})
	if err := st.Save(map[string]json.RawMessage{
		"scanner-good": good,
		"scanner-bad":  json.RawMessage(`["not", "an", "object"]`),
	}); err != nil {
		t.Fatalf("writing checkpoint fixture: %v", err)
	}

	store := newTestStore(t, path, time.Second)
	store.Load()

	ids := store.Scanners()
	if len(ids) != 1 || ids[0] != "scanner-good" {
		t.Errorf("Scanners() = %v, want [scanner-good]", ids)
	}
}

// TestLoadCorruptCheckpoint verifies a corrupt file loads as empty state
// rather than failing.
func TestLoadCorruptCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")
	writeFile(t, path, "{definitely not json")

	store := newTestStore(t, path, time.Second)
	store.Load()

	if ids := store.Scanners(); len(ids) != 0 {
		t.Errorf("Scanners() = %v, want empty after corrupt load", ids)
	}
}

// TestPersistenceAcrossRestart verifies state written before a flush is
// visible to a second store reading the same file.
func TestPersistenceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")

	first := newTestStore(t, path, time.Hour)
	first.Load()
	first.SetAdvertisementHistory("scanner-one", true, 195,
		map[string]DeviceAdvertisement{"AA:BB:CC:DD:EE:FF": testAdvertisement("AA:BB:CC:DD:EE:FF")},
		map[string]float64{"AA:BB:CC:DD:EE:FF": MonotonicTime()},
	)
	if err := first.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	second := newTestStore(t, path, time.Hour)
	second.Load()

	rec, ok := second.AdvertisementHistory("scanner-one")
	if !ok {
		t.Fatal("scanner missing after restart")
	}
	if len(rec.Advertisements) != 1 {
		t.Errorf("got %d advertisements after restart, want 1", len(rec.Advertisements))
	}
	if !rec.Connectable || rec.ExpireSeconds != 195 {
		t.Errorf("scanner settings not preserved: connectable=%v expire=%v",
			rec.Connectable, rec.ExpireSeconds)
	}

	// The restored timestamp should read as recent on the new monotonic
	// scale: the device was seen moments ago.
	age := MonotonicTime() - rec.Timestamps["AA:BB:CC:DD:EE:FF"]
	if age < 0 || age > 5 {
		t.Errorf("restored advertisement age = %vs, want under 5s", age)
	}
}

// TestDebounceCoalesces verifies a burst of writes produces one
// checkpoint containing the final state.
func TestDebounceCoalesces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluetooth.json")
	store := newTestStore(t, path, 50*time.Millisecond)
	store.Load()

	for i := 0; i < 5; i++ {
		store.SetAdvertisementHistory("scanner-one", false, 60,
			map[string]DeviceAdvertisement{"AA:BB:CC:DD:EE:FF": testAdvertisement("AA:BB:CC:DD:EE:FF")},
			map[string]float64{"AA:BB:CC:DD:EE:FF": MonotonicTime()},
		)
	}

	// Wait out the debounce window, then confirm the file holds the state.
	time.Sleep(200 * time.Millisecond)

	reader := newTestStore(t, path, time.Second)
	reader.Load()
	if _, ok := reader.AdvertisementHistory("scanner-one"); !ok {
		t.Error("debounced checkpoint never reached disk")
	}
}

// writeFile writes raw content to path.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
