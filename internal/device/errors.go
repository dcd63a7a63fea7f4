package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrNoState is returned when a device has not been polled successfully yet.
	ErrNoState = errors.New("device: no state yet")
)
