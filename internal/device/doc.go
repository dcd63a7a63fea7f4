// Package device provides the in-memory registry of cloud devices known
// to the bridge.
//
// The registry is the read model behind the REST API, the MQTT relay and
// the command encoder: it holds each device's Descriptor, the last
// accepted raw Snapshot and the latest zone translation.
//
// # Key Types
//
//   - Descriptor: account, building, device id, family and name
//   - Record: descriptor plus snapshot, translation and health
//   - Registry: thread-safe map of records keyed by device id
//
// # Usage
//
//	reg := device.NewRegistry()
//	reg.Upsert(desc)
//	reg.SetSnapshot(desc.DeviceID, snap)
//	rec, err := reg.Get(desc.DeviceID)
//
// All returned records are deep copies; callers may modify them freely.
package device
