// Package connection owns the single broker connection of the notice client.
//
// A Manager holds the desired client configuration and one authoritative
// State. Connect resolves the configured address, builds a transport and
// starts a receive loop goroutine; the loop reports ConnAck, hands inbound
// messages to a Dispatcher and retries on transport errors after a fixed
// delay. Disconnect cancels the loop and closes the transport.
//
// State transitions:
//
//	Disconnected --Connect--> Connecting --ConnAck--> Connected
//	Connecting --address error--> Disconnected
//	Connecting --Connect with changed config--> Connecting (new loop)
//	Connected --transport error--> Disconnected (loop keeps retrying)
//	any --Disconnect--> Disconnected
//
// Every transition is published as a "connection-state" event. Exactly one
// "disconnected" event is emitted per Connected to Disconnected transition,
// however many retries follow.
package connection
