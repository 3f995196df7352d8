package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSignalStrength records the RSSI of an advertisement received by a
// remote scanner.
//
// This is the primary method for recording Bluetooth telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteSignalStrength("scanner-hallway", "AA:BB:CC:DD:EE:FF", -67)
func (c *Client) WriteSignalStrength(scannerID, address string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"signal_strength",
		map[string]string{
			"scanner_id": scannerID,
			"address":    address,
		},
		map[string]interface{}{
			"rssi": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteScannerActivity records the number of devices a scanner is
// currently tracking. Useful for spotting scanners that have gone quiet
// or are flooding the bus.
func (c *Client) WriteScannerActivity(scannerID string, deviceCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scanner_activity",
		map[string]string{
			"scanner_id": scannerID,
		},
		map[string]interface{}{
			"device_count": deviceCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
