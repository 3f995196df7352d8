package bluetooth

import (
	"fmt"
)

// AdvertisementMessage is the JSON payload remote scanners publish on
// graylogic/bluetooth/{scanner_id}/advertisement.
//
// Binary payload fields use the same encoding as the checkpoint file:
// hex strings, with manufacturer ids as decimal string keys.
type AdvertisementMessage struct {
	// Address is the observed device address. Required.
	Address string `json:"address"`

	// Name is the resolved device name, if the scanner knows it.
	Name string `json:"name,omitempty"`

	// LocalName is the local name from the advertisement payload.
	LocalName string `json:"local_name,omitempty"`

	// RSSI is the received signal strength in dBm.
	RSSI int `json:"rssi"`

	// TxPower is the advertised transmit power in dBm.
	TxPower int `json:"tx_power,omitempty"`

	// ManufacturerData maps decimal company id to hex payload.
	ManufacturerData map[string]string `json:"manufacturer_data,omitempty"`

	// ServiceData maps service UUID to hex payload.
	ServiceData map[string]string `json:"service_data,omitempty"`

	// ServiceUUIDs lists the advertised service UUIDs.
	ServiceUUIDs []string `json:"service_uuids,omitempty"`

	// Connectable reports whether the scanner can establish connections.
	// Omitted means the scanner's previous (or default) setting applies.
	Connectable *bool `json:"connectable,omitempty"`

	// ExpireSeconds is the scanner's advertisement TTL. Omitted or zero
	// means the service default applies.
	ExpireSeconds float64 `json:"expire_seconds,omitempty"`

	// Details is an opaque scanner-specific detail blob.
	Details map[string]any `json:"details,omitempty"`
}

// Validate checks the message for required fields.
func (m *AdvertisementMessage) Validate() error {
	if m.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidMessage)
	}
	if m.ExpireSeconds < 0 {
		return fmt.Errorf("%w: expire_seconds must not be negative", ErrInvalidMessage)
	}
	return nil
}

// ToDeviceAdvertisement converts the message to the in-memory pairing.
//
// Returns:
//   - DeviceAdvertisement: Device and advertisement for the store
//   - error: If a hex payload or manufacturer id cannot be decoded
func (m *AdvertisementMessage) ToDeviceAdvertisement() (DeviceAdvertisement, error) {
	manufacturerData, err := decodeManufacturerData(m.ManufacturerData)
	if err != nil {
		return DeviceAdvertisement{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	serviceData, err := decodeHexMap(m.ServiceData)
	if err != nil {
		return DeviceAdvertisement{}, fmt.Errorf("%w: service data: %w", ErrInvalidMessage, err)
	}

	return DeviceAdvertisement{
		Device: DeviceInfo{
			Address: m.Address,
			Name:    m.Name,
			RSSI:    m.RSSI,
			Details: m.Details,
		},
		Advertisement: AdvertisementData{
			LocalName:        m.LocalName,
			ManufacturerData: manufacturerData,
			ServiceData:      serviceData,
			ServiceUUIDs:     m.ServiceUUIDs,
			TxPower:          m.TxPower,
			RSSI:             m.RSSI,
		},
	}, nil
}
