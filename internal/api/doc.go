// Package api implements the bridge's HTTP REST API and WebSocket event
// stream.
//
// This package provides:
//   - Read endpoints for accounts, devices, raw state and zone state
//   - Command endpoints for {key: value} state changes, zone intents,
//     presets, buttons and the account temperature unit
//   - A WebSocket hub that relays bridge events by type
//   - Optional HS256 bearer tokens on every mutating route
//   - The Prometheus scrape endpoint
//
// Commands are applied with integration name "REST". Reads never touch
// the cloud; they serve the registry's last accepted state.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
