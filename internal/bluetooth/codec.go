package bluetooth

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Stored field names are a compatibility contract with existing checkpoint
// files. Renaming any of them requires a storage migration.

// storedScanner is the JSON-resident form of one scanner's state.
// Advertisement entries stay as raw JSON until a caller asks for them, so
// a single malformed entry cannot poison the rest of the document.
type storedScanner struct {
	Connectable    bool                       `json:"connectable"`
	ExpireSeconds  float64                    `json:"expire_seconds"`
	Advertisements map[string]json.RawMessage `json:"discovered_device_advertisement_datas"`
	Timestamps     map[string]float64         `json:"discovered_device_timestamps"`
}

// storedAdvertisement is the JSON form of one device's latest observation.
type storedAdvertisement struct {
	Device            storedDevice            `json:"device"`
	AdvertisementData storedAdvertisementData `json:"advertisement_data"`
}

// storedDevice is the JSON form of DeviceInfo.
type storedDevice struct {
	Address string         `json:"address"`
	Name    string         `json:"name"`
	RSSI    int            `json:"rssi"`
	Details map[string]any `json:"details,omitempty"`
}

// storedAdvertisementData is the JSON form of AdvertisementData.
// Binary payloads are hex-encoded; manufacturer ids become decimal string
// keys because JSON object keys must be strings.
type storedAdvertisementData struct {
	LocalName        string            `json:"local_name"`
	ManufacturerData map[string]string `json:"manufacturer_data"`
	ServiceData      map[string]string `json:"service_data"`
	ServiceUUIDs     []string          `json:"service_uuids"`
	TxPower          int               `json:"tx_power"`
	RSSI             int               `json:"rssi"`
}

// encodeAdvertisement converts a device/advertisement pair to its raw JSON
// stored form.
func encodeAdvertisement(pair DeviceAdvertisement) (json.RawMessage, error) {
	stored := storedAdvertisement{
		Device: storedDevice{
			Address: pair.Device.Address,
			Name:    pair.Device.Name,
			RSSI:    pair.Device.RSSI,
			Details: pair.Device.Details,
		},
		AdvertisementData: storedAdvertisementData{
			LocalName:        pair.Advertisement.LocalName,
			ManufacturerData: encodeManufacturerData(pair.Advertisement.ManufacturerData),
			ServiceData:      encodeHexMap(pair.Advertisement.ServiceData),
			ServiceUUIDs:     pair.Advertisement.ServiceUUIDs,
			TxPower:          pair.Advertisement.TxPower,
			RSSI:             pair.Advertisement.RSSI,
		},
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding advertisement: %w", err)
	}
	return raw, nil
}

// decodeAdvertisement reconstructs a device/advertisement pair from its raw
// JSON stored form.
func decodeAdvertisement(raw json.RawMessage) (DeviceAdvertisement, error) {
	var stored storedAdvertisement
	if err := json.Unmarshal(raw, &stored); err != nil {
		return DeviceAdvertisement{}, fmt.Errorf("decoding advertisement: %w", err)
	}

	manufacturerData, err := decodeManufacturerData(stored.AdvertisementData.ManufacturerData)
	if err != nil {
		return DeviceAdvertisement{}, err
	}
	serviceData, err := decodeHexMap(stored.AdvertisementData.ServiceData)
	if err != nil {
		return DeviceAdvertisement{}, fmt.Errorf("service data: %w", err)
	}

	return DeviceAdvertisement{
		Device: DeviceInfo{
			Address: stored.Device.Address,
			Name:    stored.Device.Name,
			RSSI:    stored.Device.RSSI,
			Details: stored.Device.Details,
		},
		Advertisement: AdvertisementData{
			LocalName:        stored.AdvertisementData.LocalName,
			ManufacturerData: manufacturerData,
			ServiceData:      serviceData,
			ServiceUUIDs:     stored.AdvertisementData.ServiceUUIDs,
			TxPower:          stored.AdvertisementData.TxPower,
			RSSI:             stored.AdvertisementData.RSSI,
		},
	}, nil
}

// encodeManufacturerData hex-encodes payloads and stringifies company ids.
func encodeManufacturerData(data map[uint16][]byte) map[string]string {
	if data == nil {
		return nil
	}
	encoded := make(map[string]string, len(data))
	for id, payload := range data {
		encoded[strconv.FormatUint(uint64(id), 10)] = hex.EncodeToString(payload)
	}
	return encoded
}

// decodeManufacturerData parses company ids and hex-decodes payloads.
func decodeManufacturerData(data map[string]string) (map[uint16][]byte, error) {
	if data == nil {
		return nil, nil
	}
	decoded := make(map[uint16][]byte, len(data))
	for key, value := range data {
		id, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("manufacturer id %q: %w", key, err)
		}
		payload, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("manufacturer data %q: %w", key, err)
		}
		decoded[uint16(id)] = payload
	}
	return decoded, nil
}

// encodeHexMap hex-encodes every value in a string-keyed byte map.
func encodeHexMap(data map[string][]byte) map[string]string {
	if data == nil {
		return nil
	}
	encoded := make(map[string]string, len(data))
	for key, payload := range data {
		encoded[key] = hex.EncodeToString(payload)
	}
	return encoded
}

// decodeHexMap hex-decodes every value in a string-keyed hex map.
func decodeHexMap(data map[string]string) (map[string][]byte, error) {
	if data == nil {
		return nil, nil
	}
	decoded := make(map[string][]byte, len(data))
	for key, value := range data {
		payload, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		decoded[key] = payload
	}
	return decoded, nil
}

// serializeScanner converts an in-memory ScannerRecord to its stored form,
// converting monotonic timestamps to wall-clock through conv. All timestamps
// in the record share conv's single offset sample.
func serializeScanner(rec ScannerRecord, conv timeConverter) (storedScanner, error) {
	stored := storedScanner{
		Connectable:    rec.Connectable,
		ExpireSeconds:  rec.ExpireSeconds,
		Advertisements: make(map[string]json.RawMessage, len(rec.Advertisements)),
		Timestamps:     make(map[string]float64, len(rec.Timestamps)),
	}

	for address, pair := range rec.Advertisements {
		monotonic, ok := rec.Timestamps[address]
		if !ok {
			// Unpaired address; nothing to expire it against, so drop it.
			continue
		}
		raw, err := encodeAdvertisement(pair)
		if err != nil {
			return storedScanner{}, fmt.Errorf("address %s: %w", address, err)
		}
		stored.Advertisements[address] = raw
		stored.Timestamps[address] = conv.toStorage(monotonic)
	}

	return stored, nil
}

// deserializeScanner reconstructs an in-memory ScannerRecord from its stored
// form, converting wall-clock timestamps to monotonic through conv.
//
// A malformed address entry (bad hex, unparseable manufacturer id, missing
// timestamp) is skipped individually; its address is returned in dropped so
// the caller can log it. Remaining addresses deserialize normally.
func deserializeScanner(stored storedScanner, conv timeConverter) (rec ScannerRecord, dropped []string) {
	rec = ScannerRecord{
		Connectable:    stored.Connectable,
		ExpireSeconds:  stored.ExpireSeconds,
		Advertisements: make(map[string]DeviceAdvertisement, len(stored.Advertisements)),
		Timestamps:     make(map[string]float64, len(stored.Timestamps)),
	}

	for address, raw := range stored.Advertisements {
		wall, ok := stored.Timestamps[address]
		if !ok {
			dropped = append(dropped, address)
			continue
		}
		pair, err := decodeAdvertisement(raw)
		if err != nil {
			dropped = append(dropped, address)
			continue
		}
		rec.Advertisements[address] = pair
		rec.Timestamps[address] = conv.fromStorage(wall)
	}

	return rec, dropped
}
