// Package poller fetches device state on a fixed interval and forwards
// changed snapshots.
//
// Each device gets one goroutine that loops fetch, compare, maybe emit,
// sleep; cycles for a device never overlap. A snapshot structurally equal
// to the stored one is dropped. Failures are logged and the device retries
// on its next interval without affecting the others.
package poller
