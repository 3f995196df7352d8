package bluetooth

import "errors"

// Domain-specific errors for bluetooth operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidMessage is returned when an advertisement message fails
	// validation or decoding.
	ErrInvalidMessage = errors.New("bluetooth: invalid advertisement message")

	// ErrMissingMQTT is returned when a bridge is created without an MQTT client.
	ErrMissingMQTT = errors.New("bluetooth: MQTT client is required")

	// ErrMissingStore is returned when a bridge is created without a store.
	ErrMissingStore = errors.New("bluetooth: advertisement store is required")
)
