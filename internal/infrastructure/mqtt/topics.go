package mqtt

import "fmt"

// Topic prefixes per the Gray Logic MQTT topic scheme:
// graylogic/{category}/{id}/{suffix}.
const (
	// TopicPrefixBluetooth is the base for all remote scanner topics.
	TopicPrefixBluetooth = "graylogic/bluetooth"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for Gray Logic MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	advTopic := topics.ScannerAdvertisement("atom-proxy-ceaac4")
//	// Returns: "graylogic/bluetooth/atom-proxy-ceaac4/advertisement"
type Topics struct{}

// ScannerAdvertisement returns the topic a scanner publishes advertisements on.
//
// Example: graylogic/bluetooth/atom-proxy-ceaac4/advertisement
func (Topics) ScannerAdvertisement(scannerID string) string {
	return fmt.Sprintf("%s/%s/advertisement", TopicPrefixBluetooth, scannerID)
}

// AllScannerAdvertisements returns the wildcard topic matching advertisement
// messages from every scanner.
//
// Example: graylogic/bluetooth/+/advertisement
func (Topics) AllScannerAdvertisements() string {
	return fmt.Sprintf("%s/+/advertisement", TopicPrefixBluetooth)
}

// ScannerStatus returns the topic a scanner publishes availability on.
//
// Example: graylogic/bluetooth/atom-proxy-ceaac4/status
func (Topics) ScannerStatus(scannerID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixBluetooth, scannerID)
}

// SystemStatus returns the topic for this service's online/offline status.
// Used for the LWT message and graceful shutdown notification.
//
// Example: graylogic/system/bluetooth/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/bluetooth/status", TopicPrefixSystem)
}
