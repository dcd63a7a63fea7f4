// Package melcloud is a thin client for the MELCloud cloud HVAC API.
//
// The client speaks the vendor's JSON over HTTPS and deliberately keeps
// response bodies raw: device entries and device state bodies are returned
// as json.RawMessage so that callers can persist them verbatim and compare
// them structurally. Typed views over those bodies live with the packages
// that interpret them.
//
// Endpoints:
//   - Login/ClientLogin             POST, unauthenticated
//   - User/ListDevices              GET, building tree
//   - Device/Get?id=&buildingID=    GET, device state
//   - Device/SetAta|SetAtw|SetErv   POST, mutation with EffectiveFlags
//   - User/UpdateApplicationOptions POST, account preferences
//
// Authenticated calls carry the login ContextKey in the X-MitsContextKey
// header. An HTTP 401 from any authenticated endpoint maps to ErrAuth so
// that the session layer can reconnect.
package melcloud
