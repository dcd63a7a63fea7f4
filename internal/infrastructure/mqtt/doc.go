// Package mqtt provides the MQTT broker connection used by the relay.
//
// This package manages:
//   - Connection with auto-reconnect and exponential backoff
//   - Publishing with QoS and retained flags
//   - Subscriptions that are restored after every reconnect
//   - A retained status topic with a Last Will so consumers see the
//     bridge go offline when it crashes
//
// # Topics
//
// Every topic hangs off the configured prefix:
//
//	{prefix}/bridge/status               online/offline (retained, LWT)
//	{prefix}/{family}/{device}/Info      static device info (retained)
//	{prefix}/{family}/{device}/State     raw vendor state (retained)
//	{prefix}/{family}/{device}/Zones     translated zone state (retained)
//	{prefix}/{family}/{device}/Set       inbound {key: value} commands
//	{prefix}/events/{type}               bridge events
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllSets(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleSet(topic, payload)
//	    })
package mqtt
