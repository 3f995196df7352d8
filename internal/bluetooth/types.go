package bluetooth

// DeviceInfo describes a remote Bluetooth device as observed by a scanner.
type DeviceInfo struct {
	// Address is the device MAC address (e.g., "AA:BB:CC:DD:EE:FF").
	Address string

	// Name is the resolved display name, if known.
	Name string

	// RSSI is the signal strength of the last observation in dBm.
	RSSI int

	// Details is an opaque scanner-specific detail blob, carried through
	// the checkpoint untouched.
	Details map[string]any
}

// AdvertisementData is the payload of the latest advertisement observed
// for a device.
type AdvertisementData struct {
	// LocalName is the shortened or complete local name from the payload.
	LocalName string

	// ManufacturerData holds manufacturer-specific payloads keyed by
	// Bluetooth SIG company identifier.
	ManufacturerData map[uint16][]byte

	// ServiceData holds service-specific payloads keyed by service UUID.
	ServiceData map[string][]byte

	// ServiceUUIDs lists the advertised service UUIDs.
	ServiceUUIDs []string

	// TxPower is the advertised transmit power in dBm.
	TxPower int

	// RSSI is the received signal strength in dBm.
	RSSI int
}

// DeviceAdvertisement pairs a device with its latest advertisement.
// This is the unit consumed by warm-start callers.
type DeviceAdvertisement struct {
	Device        DeviceInfo
	Advertisement AdvertisementData
}

// ScannerRecord is the full advertisement state for one scanner.
//
// Invariant: every address present in Advertisements is also present in
// Timestamps, and vice versa. Removal is always paired.
type ScannerRecord struct {
	// Connectable reports whether this scanner's advertisements can be
	// used to establish a connection (vs. passive listen only).
	Connectable bool

	// ExpireSeconds is the TTL applied to every advertisement from this
	// scanner. Set once when the record is created; each SetAdvertisementHistory
	// overwrites the record wholesale.
	ExpireSeconds float64

	// Advertisements maps device address to its latest observation.
	Advertisements map[string]DeviceAdvertisement

	// Timestamps maps device address to last-seen time. Monotonic seconds
	// while resident in memory; converted to wall-clock for the checkpoint.
	Timestamps map[string]float64
}
