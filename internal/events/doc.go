// Package events is the in-process fan-out between the bridge core and
// its relays (MQTT, WebSocket, InfluxDB, metrics, log).
//
// Publishers never block: a subscriber whose buffer is full misses the
// event and the drop is counted.
//
// Usage:
//
//	bus := events.NewBus()
//	sub := bus.Subscribe(64, events.TypeStateChanged)
//	defer sub.Close()
//	for ev := range sub.C() {
//	    fmt.Println(ev.Type, ev.DeviceID)
//	}
package events
