package zone

import "errors"

// ErrMissingDeviceID is returned when a device state body carries no
// DeviceID. It is the only condition that aborts a translation.
var ErrMissingDeviceID = errors.New("zone: state has no DeviceID")

// ErrUnsupportedFamily is returned for device types without a translator.
var ErrUnsupportedFamily = errors.New("zone: unsupported device family")
