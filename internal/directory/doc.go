// Package directory enumerates the devices of one MELCloud account.
//
// A scan lists the account's buildings, flattens the nested floor and area
// tree into device entries, persists the raw data, and announces each
// device once per process. Later scans refresh the entries of devices that
// were already announced so capability changes reach the pollers.
package directory
