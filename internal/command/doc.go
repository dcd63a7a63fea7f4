// Package command encodes local intents into MELCloud mutation requests.
//
// Every writable field has a static EffectiveFlags bit per device family.
// A request carries exactly the bits of the fields it changes; the
// server ignores every other field in the body.
//
// The package has two layers:
//
//   - Pure encoding: ApplyField / ApplyFields patch a snapshot copy,
//     coerce and clamp values, and compute the flags. ZoneTarget,
//     ZoneTemperature, ZoneLock, PresetChanges and ButtonChanges turn
//     higher-level intents into field changes.
//   - Encoder: resolves the device and session, sends the request with a
//     timeout, stores the patched snapshot optimistically and publishes
//     command.applied, warning and error events.
//
// Unknown fields never reach the network. Encoder reports them as warning
// events so external integrations can send arbitrary keys safely.
package command
