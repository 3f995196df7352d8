package bluetooth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Bridge operation constants.
const (
	// topicPrefix is the base for all bluetooth scanner topics.
	topicPrefix = "graylogic/bluetooth"

	// advertisementSuffix is the final topic segment for advertisement messages.
	advertisementSuffix = "advertisement"

	// advertisementTopicParts is the number of segments in an advertisement topic.
	advertisementTopicParts = 4

	// sightingTimeout bounds each sighting history write.
	sightingTimeout = 5 * time.Second

	// defaultExpireSeconds matches the config default for scanners that do
	// not report their own TTL.
	defaultExpireSeconds = 195

	// defaultPruneInterval is the live-state sweep interval when unset.
	defaultPruneInterval = 30 * time.Second
)

// AdvertisementSubscribeTopic returns the wildcard topic matching
// advertisement messages from all scanners.
//
// Example match: graylogic/bluetooth/atom-proxy-ceaac4/advertisement
func AdvertisementSubscribeTopic() string {
	return fmt.Sprintf("%s/+/%s", topicPrefix, advertisementSuffix)
}

// scannerFromTopic extracts the scanner id from an advertisement topic.
func scannerFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != advertisementTopicParts {
		return "", false
	}
	if parts[0]+"/"+parts[1] != topicPrefix || parts[3] != advertisementSuffix {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// TelemetryWriter records signal strength and scanner activity observations.
// This interface is satisfied by *influxdb.Client.
// It is optional - if nil, the bridge operates without telemetry.
type TelemetryWriter interface {
	// WriteSignalStrength records one RSSI observation.
	WriteSignalStrength(scannerID, address string, rssi int)

	// WriteScannerActivity records the number of live advertisements a
	// scanner is tracking.
	WriteScannerActivity(scannerID string, deviceCount int)
}

// liveScanner is the bridge's in-memory state for one scanner, kept in the
// deserialized form with monotonic timestamps.
type liveScanner struct {
	connectable    bool
	expireSeconds  float64
	advertisements map[string]DeviceAdvertisement
	timestamps     map[string]float64
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// MQTT is the broker connection used for scanner ingest. Required.
	MQTT MQTTClient

	// Store receives checkpoints of scanner state. Required.
	Store *AdvertisementStore

	// Sightings records per-observation history. Optional.
	Sightings SightingRepository

	// Telemetry records RSSI observations. Optional.
	Telemetry TelemetryWriter

	// QoS is the subscription QoS level.
	QoS byte

	// DefaultExpireSeconds is applied to scanners that do not report a TTL.
	DefaultExpireSeconds float64

	// PruneInterval is how often live state is swept for stale advertisements.
	PruneInterval time.Duration

	// SightingRetention is how long sighting rows are kept. Zero disables
	// retention pruning.
	SightingRetention time.Duration
}

// Bridge ingests advertisements from remote scanners over MQTT and keeps
// the advertisement store, sighting history, and telemetry up to date.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	opts  BridgeOptions
	mqtt  MQTTClient
	store *AdvertisementStore

	// Live scanner state, monotonic timestamps
	scanners   map[string]*liveScanner
	scannersMu sync.RWMutex

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge from the given options.
//
// Returns:
//   - *Bridge: Bridge ready to Start
//   - error: If a required dependency is missing
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, ErrMissingMQTT
	}
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.DefaultExpireSeconds <= 0 {
		opts.DefaultExpireSeconds = defaultExpireSeconds
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}

	return &Bridge{
		opts:     opts,
		mqtt:     opts.MQTT,
		store:    opts.Store,
		scanners: make(map[string]*liveScanner),
		done:     make(chan struct{}),
	}, nil
}

// Start loads the checkpoint, seeds live state from it, subscribes to
// scanner advertisement topics, and starts the prune loop.
//
// The passed context parents all background work; Stop cancels it.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	// Load runs the one-time expiry sweep before any state is read.
	b.store.Load()
	b.seedFromStore()

	topic := AdvertisementSubscribeTopic()
	if err := b.mqtt.Subscribe(topic, b.opts.QoS, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to advertisements: %w", err)
	}
	b.logInfo("subscribed to scanner advertisements", "topic", topic)

	b.wg.Add(1)
	go b.pruneLoop()

	b.scannersMu.RLock()
	scannerCount := len(b.scanners)
	b.scannersMu.RUnlock()

	b.logInfo("bridge started", "restored_scanners", scannerCount)
	return nil
}

// Stop gracefully shuts down the bridge and flushes any pending checkpoint.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		if b.ctxCancel != nil {
			b.ctxCancel()
		}
		b.wg.Wait()

		if err := b.store.Flush(); err != nil {
			b.logError("failed to flush checkpoint on shutdown", err)
		}

		b.logInfo("bridge stopped")
	})
}

// seedFromStore populates live scanner state from the loaded checkpoint.
// The store returns monotonic timestamps, so the live maps can be used for
// freshness comparisons immediately.
func (b *Bridge) seedFromStore() {
	b.scannersMu.Lock()
	defer b.scannersMu.Unlock()

	for _, scannerID := range b.store.Scanners() {
		rec, ok := b.store.AdvertisementHistory(scannerID)
		if !ok {
			continue
		}
		b.scanners[scannerID] = &liveScanner{
			connectable:    rec.Connectable,
			expireSeconds:  rec.ExpireSeconds,
			advertisements: rec.Advertisements,
			timestamps:     rec.Timestamps,
		}
		b.logDebug("restored scanner history",
			"scanner_id", scannerID,
			"devices", len(rec.Advertisements),
		)
	}
}

// handleMessage processes one advertisement message from a scanner.
func (b *Bridge) handleMessage(topic string, payload []byte) {
	scannerID, ok := scannerFromTopic(topic)
	if !ok {
		b.logDebug("ignoring message on unexpected topic", "topic", topic)
		return
	}

	var msg AdvertisementMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logWarn("dropping undecodable advertisement", "scanner_id", scannerID, "error", err)
		return
	}
	if err := msg.Validate(); err != nil {
		b.logWarn("dropping invalid advertisement", "scanner_id", scannerID, "error", err)
		return
	}

	pair, err := msg.ToDeviceAdvertisement()
	if err != nil {
		b.logWarn("dropping invalid advertisement", "scanner_id", scannerID, "address", msg.Address, "error", err)
		return
	}

	b.applyAdvertisement(scannerID, &msg, pair)
	b.recordSighting(scannerID, &msg)

	if b.opts.Telemetry != nil {
		b.opts.Telemetry.WriteSignalStrength(scannerID, msg.Address, msg.RSSI)
	}
}

// applyAdvertisement updates live scanner state and checkpoints it.
func (b *Bridge) applyAdvertisement(scannerID string, msg *AdvertisementMessage, pair DeviceAdvertisement) {
	b.scannersMu.Lock()

	scanner, ok := b.scanners[scannerID]
	if !ok {
		expire := msg.ExpireSeconds
		if expire <= 0 {
			expire = b.opts.DefaultExpireSeconds
		}
		scanner = &liveScanner{
			connectable:    msg.Connectable != nil && *msg.Connectable,
			expireSeconds:  expire,
			advertisements: make(map[string]DeviceAdvertisement),
			timestamps:     make(map[string]float64),
		}
		b.scanners[scannerID] = scanner
		b.logInfo("new scanner observed",
			"scanner_id", scannerID,
			"connectable", scanner.connectable,
			"expire_seconds", scanner.expireSeconds,
		)
	} else if msg.Connectable != nil {
		scanner.connectable = *msg.Connectable
	}

	scanner.advertisements[msg.Address] = pair
	scanner.timestamps[msg.Address] = MonotonicTime()

	connectable := scanner.connectable
	expire := scanner.expireSeconds
	advertisements, timestamps := scanner.copyState()

	b.scannersMu.Unlock()

	// The store serializes synchronously, but checkpoints from copies so a
	// concurrent handler for the same scanner cannot race the encoder.
	b.store.SetAdvertisementHistory(scannerID, connectable, expire, advertisements, timestamps)
}

// recordSighting appends the observation to sighting history, if configured.
func (b *Bridge) recordSighting(scannerID string, msg *AdvertisementMessage) {
	if b.opts.Sightings == nil {
		return
	}

	name := msg.Name
	if name == "" {
		name = msg.LocalName
	}

	ctx, cancel := context.WithTimeout(b.ctx, sightingTimeout)
	defer cancel()

	if err := b.opts.Sightings.RecordSighting(ctx, scannerID, msg.Address, name, msg.RSSI); err != nil {
		b.logWarn("failed to record sighting",
			"scanner_id", scannerID,
			"address", msg.Address,
			"error", err,
		)
	}
}

// pruneLoop periodically sweeps live state for stale advertisements and
// applies sighting retention.
func (b *Bridge) pruneLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.pruneStale()
			b.pruneSightings()
		}
	}
}

// pruneStale removes live advertisements older than their scanner's TTL,
// comparing monotonic ages. Changed scanners are checkpointed; a scanner
// left empty is dropped from live state only, and its stored record ages
// out at the next restart sweep. After the sweep, a per-scanner activity
// count is written to telemetry (0 for scanners emptied this pass).
func (b *Bridge) pruneStale() {
	now := MonotonicTime()

	type checkpoint struct {
		scannerID      string
		connectable    bool
		expireSeconds  float64
		advertisements map[string]DeviceAdvertisement
		timestamps     map[string]float64
	}
	var (
		changed []checkpoint
		emptied []string
	)

	b.scannersMu.Lock()
	for scannerID, scanner := range b.scanners {
		var expired []string
		for address, lastSeen := range scanner.timestamps {
			if now-lastSeen > scanner.expireSeconds {
				expired = append(expired, address)
			}
		}
		if len(expired) == 0 {
			continue
		}
		for _, address := range expired {
			delete(scanner.advertisements, address)
			delete(scanner.timestamps, address)
		}
		b.logDebug("pruned stale advertisements",
			"scanner_id", scannerID,
			"expired", len(expired),
			"remaining", len(scanner.advertisements),
		)

		if len(scanner.advertisements) == 0 {
			delete(b.scanners, scannerID)
			emptied = append(emptied, scannerID)
			continue
		}

		advertisements, timestamps := scanner.copyState()
		changed = append(changed, checkpoint{
			scannerID:      scannerID,
			connectable:    scanner.connectable,
			expireSeconds:  scanner.expireSeconds,
			advertisements: advertisements,
			timestamps:     timestamps,
		})
	}

	activity := make(map[string]int, len(b.scanners))
	for scannerID, scanner := range b.scanners {
		activity[scannerID] = len(scanner.advertisements)
	}
	b.scannersMu.Unlock()

	if b.opts.Telemetry != nil {
		for scannerID, count := range activity {
			b.opts.Telemetry.WriteScannerActivity(scannerID, count)
		}
		for _, scannerID := range emptied {
			b.opts.Telemetry.WriteScannerActivity(scannerID, 0)
		}
	}

	for _, cp := range changed {
		b.store.SetAdvertisementHistory(cp.scannerID, cp.connectable, cp.expireSeconds, cp.advertisements, cp.timestamps)
	}
}

// pruneSightings applies the sighting retention window, if configured.
func (b *Bridge) pruneSightings() {
	if b.opts.Sightings == nil || b.opts.SightingRetention <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, sightingTimeout)
	defer cancel()

	removed, err := b.opts.Sightings.PruneBefore(ctx, time.Now().Add(-b.opts.SightingRetention))
	if err != nil {
		b.logWarn("failed to prune sighting history", "error", err)
		return
	}
	if removed > 0 {
		b.logDebug("pruned sighting history", "removed", removed)
	}
}

// ScannerCount returns the number of live scanners.
func (b *Bridge) ScannerCount() int {
	b.scannersMu.RLock()
	defer b.scannersMu.RUnlock()
	return len(b.scanners)
}

// DeviceCount returns the total number of live advertisements across scanners.
func (b *Bridge) DeviceCount() int {
	b.scannersMu.RLock()
	defer b.scannersMu.RUnlock()

	total := 0
	for _, scanner := range b.scanners {
		total += len(scanner.advertisements)
	}
	return total
}

// copyState returns copies of the scanner's advertisement and timestamp maps.
// Callers must hold scannersMu.
func (s *liveScanner) copyState() (map[string]DeviceAdvertisement, map[string]float64) {
	advertisements := make(map[string]DeviceAdvertisement, len(s.advertisements))
	for address, pair := range s.advertisements {
		advertisements[address] = pair
	}
	timestamps := make(map[string]float64, len(s.timestamps))
	for address, ts := range s.timestamps {
		timestamps[address] = ts
	}
	return advertisements, timestamps
}

// SetLogger sets a logger for bridge events.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
