// Package mqtt provides the broker connection for the bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions, restored after every reconnect
//   - Delivery of each message with its retained flag
//   - Connection health reporting
//
// The bridge only consumes. It publishes nothing and sets no Last Will.
//
// # Delivery
//
// Handlers run on paho's delivery goroutines. A handler that returns an
// error has it logged at warn; a handler that panics is recovered and
// logged at error, so one bad message never takes the connection down.
//
// Retained messages are delivered like any other, with Message.Retained
// set. Deciding what to do with them is the caller's job.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("#", 0, func(msg mqtt.Message) error {
//	    ingestor.HandleMessage(...)
//	    return nil
//	})
package mqtt
