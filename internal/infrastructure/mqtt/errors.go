package mqtt

import (
	"errors"
	"fmt"
)

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEmptyHost is returned when a broker address has no host.
	ErrEmptyHost = errors.New("mqtt: server address has an empty host")

	// ErrInvalidPort is matched by *InvalidPortError.
	ErrInvalidPort = errors.New("mqtt: invalid port")

	// ErrNotConnected is returned when attempting operations on a disconnected transport.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionLost is returned by Poll when an established connection drops.
	ErrConnectionLost = errors.New("mqtt: connection lost")

	// ErrTransportClosed is returned by Poll after Disconnect.
	ErrTransportClosed = errors.New("mqtt: transport closed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty or malformed topic is provided.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidTLSConfig is returned when CA material cannot be loaded.
	ErrInvalidTLSConfig = errors.New("mqtt: invalid TLS configuration")
)

// InvalidPortError reports a port string that is not an unsigned 16-bit integer.
type InvalidPortError struct {
	Value string
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidPort, e.Value)
}

// Is makes errors.Is(err, ErrInvalidPort) match.
func (e *InvalidPortError) Is(target error) bool {
	return target == ErrInvalidPort
}
