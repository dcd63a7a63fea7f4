package mqttrelay

import "errors"

var (
	// ErrBadTopic is returned for a Set topic outside the relay's prefix.
	ErrBadTopic = errors.New("mqttrelay: not a set topic")

	// ErrFamilyMismatch is returned when the topic family does not match the device type.
	ErrFamilyMismatch = errors.New("mqttrelay: device family mismatch")
)
