package snapshot

import "errors"

// ErrNotFound is returned by Get when no blob is stored under the key.
var ErrNotFound = errors.New("snapshot not found")
