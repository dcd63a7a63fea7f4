// Package session manages the MELCloud login lifecycle of one account.
//
// A Manager logs in, stores the resulting Session in a TokenStore, waits a
// short settle delay and then announces the connection. Failures of any
// kind wait the reconnect delay and try again, forever. Directory scans
// and pollers that see HTTP 401 call Invalidate to force a new login.
//
// The TokenStore is read lock-free by every goroutine that talks to the
// API; sessions are replaced wholesale, never mutated.
package session
