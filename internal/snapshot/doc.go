// Package snapshot persists the verbatim MELCloud responses the bridge
// receives, keyed by account and device.
//
// Keys follow the pattern {account}_Account, {account}_Buildings and
// {account}_Device_{id}. Every Put replaces the previous blob for the key.
// The SQLite store is authoritative; an S3 mirror can be layered on top
// with Mirrored, in which case mirror failures are logged and never
// returned to the caller.
package snapshot
