package melcloud

import "errors"

// Domain-specific errors for the MELCloud client.
// Callers classify failures with errors.Is.
var (
	// ErrAuth indicates rejected credentials, a missing context key, or an
	// expired session (HTTP 401).
	ErrAuth = errors.New("melcloud: authentication failed")

	// ErrNetwork indicates a transport failure or timeout.
	ErrNetwork = errors.New("melcloud: network error")

	// ErrData indicates a response body that could not be interpreted.
	ErrData = errors.New("melcloud: unexpected response data")

	// ErrStatus indicates a non-success HTTP status other than 401.
	ErrStatus = errors.New("melcloud: unexpected status")

	// ErrUnsupportedType indicates a device type with no set endpoint.
	ErrUnsupportedType = errors.New("melcloud: unsupported device type")
)
