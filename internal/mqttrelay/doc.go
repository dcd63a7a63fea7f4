// Package mqttrelay mirrors bridge events onto MQTT and turns inbound
// Set messages into device commands.
//
// Outbound, every device.state_changed event publishes the raw vendor
// state on {prefix}/{family}/{device}/State and the translated zones on
// .../Zones; device.info publishes .../Info. All three are retained.
// Warnings, errors and session changes go to {prefix}/events/{type}.
//
// Inbound, a JSON object published on .../Set is applied key by key
// with integration name "MQTT":
//
//	mosquitto_pub -t melcloud/ata/lounge-101/Set -m '{"SetTemperature": 21.5}'
package mqttrelay
