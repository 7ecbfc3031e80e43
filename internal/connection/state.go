package connection

import "github.com/nerrad567/notice-client/internal/infrastructure/mqtt"

// State is the connection state observed by the UI.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the wire name used in "connection-state" events.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ClientConfig is the user-editable client record.
// It is replaced wholesale on update.
type ClientConfig struct {
	Server   string `json:"server"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
	Token    string `json:"token"`
}

// DefaultClientConfig returns the record used before the user saves one.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server: "tcp://localhost:1883",
		Topic:  mqtt.DefaultTopicFilter,
	}
}
