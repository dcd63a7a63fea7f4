// Package telemetry records translated zone state as time-series points.
//
// A Sink subscribes to device.state_changed events and writes one
// melcloud_device point per change plus one melcloud_zone point per zone.
// Tags are account, device_id, device_name and family; zone points add
// role and index. Optimistic updates from commands are skipped so the
// series only holds values the cloud reported.
package telemetry
