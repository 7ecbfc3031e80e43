package mqtt

import "context"

// EventKind classifies what a Poll call produced.
type EventKind int

// Event kinds yielded by Poll.
const (
	// EventOther is any protocol event the receive loop does not act on.
	EventOther EventKind = iota

	// EventConnAck is yielded once per successful (re)connection.
	EventConnAck

	// EventPublish carries an inbound application message.
	EventPublish
)

// String returns a short name for logging.
func (k EventKind) String() string {
	switch k {
	case EventConnAck:
		return "connack"
	case EventPublish:
		return "publish"
	default:
		return "other"
	}
}

// Event is one item produced by a Transport.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
}

// Transport is a poll-driven broker connection.
//
// Poll establishes the connection on first use and after a failure, so the
// caller owns the retry policy: a failed or lost connection surfaces as an
// error and the next Poll tries again.
//
// Implementations must be safe for Disconnect to be called concurrently
// with a blocked Poll; Poll then returns ErrTransportClosed.
type Transport interface {
	// Poll blocks until the next event, a transport error or ctx is done.
	Poll(ctx context.Context) (Event, error)

	// Subscribe requests a subscription on the live connection.
	Subscribe(ctx context.Context, filter string, qos byte) error

	// Publish sends a message on the live connection.
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error

	// Disconnect closes the connection gracefully. Safe to call more than once.
	Disconnect()
}

// Dialer constructs a Transport for an endpoint without connecting it.
type Dialer func(ep Endpoint, opts ClientOptions) (Transport, error)

// Dial is the default Dialer backed by paho.
func Dial(ep Endpoint, opts ClientOptions) (Transport, error) {
	c, err := NewClient(ep, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// compile-time interface check
var _ Transport = (*Client)(nil)
