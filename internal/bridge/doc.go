// Package bridge wires the per-account MELCloud pipeline together.
//
// For every configured account a Bridge runs a session manager, a device
// directory and a poller. The directory starts polling each discovered
// device; every changed snapshot flows through one buffered channel to a
// single dispatcher goroutine, which translates it into zone state,
// updates the device registry and publishes events. Relays (MQTT, REST,
// WebSocket, InfluxDB) consume those events and send commands back
// through the bridge's Encoder.
package bridge
