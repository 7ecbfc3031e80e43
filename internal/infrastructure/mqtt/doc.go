// Package mqtt provides the broker transport for the notice client.
//
// This package contains:
//   - ParseEndpoint: resolves human-supplied addresses such as
//     "broker.example.com", "ssl://host:8883" or "wss://host/mqtt"
//   - Transport: a poll-driven connection interface
//   - Client: the paho.mqtt.golang implementation of Transport
//   - Topic validation helpers
//
// Unlike a callback-driven client, Client never reconnects on its own.
// Poll connects when needed and reports every failure to the caller, who
// decides when to retry. This keeps a single goroutine in charge of
// connection state.
//
// Usage:
//
//	ep, err := mqtt.ParseEndpoint("tcp://localhost:1883")
//	if err != nil {
//	    return err
//	}
//	c, err := mqtt.NewClient(ep, mqtt.ClientOptions{ClientID: "notice-1"})
//	if err != nil {
//	    return err
//	}
//	defer c.Disconnect()
//
//	for {
//	    ev, err := c.Poll(ctx)
//	    if err != nil {
//	        // back off, then poll again
//	        continue
//	    }
//	    switch ev.Kind {
//	    case mqtt.EventConnAck:
//	        _ = c.Subscribe(ctx, "notice/#", 1)
//	    case mqtt.EventPublish:
//	        handle(ev.Topic, ev.Payload)
//	    }
//	}
package mqtt
