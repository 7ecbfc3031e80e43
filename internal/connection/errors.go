package connection

import "errors"

// Domain-specific errors for connection management.
var (
	// ErrAddressParse is returned by Connect when the server address cannot be resolved.
	// The underlying mqtt.ErrEmptyHost or mqtt.ErrInvalidPort is wrapped.
	ErrAddressParse = errors.New("connection: invalid server address")

	// ErrTransport is returned by Connect when the transport cannot be constructed.
	ErrTransport = errors.New("connection: cannot build transport")
)
