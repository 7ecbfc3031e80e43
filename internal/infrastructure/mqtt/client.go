package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client adapts paho.mqtt.golang to the poll-driven Transport interface.
//
// paho delivers messages and connection loss through callbacks; Client turns
// them into a single stream consumed by Poll. Automatic reconnection is
// disabled: after a loss, Poll reports the error once and the next Poll
// reconnects.
//
// Thread Safety:
//   - Poll must be called from one goroutine at a time.
//   - Subscribe, Publish and Disconnect are safe from any goroutine.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	endpoint Endpoint

	events chan Event
	lost   chan error

	closed    chan struct{}
	closeOnce sync.Once

	// connected is the Poll-side view: true from a successful connect until
	// Poll reports the loss.
	connected bool
	connMu    sync.RWMutex

	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewClient builds an unconnected Client. The first Poll connects.
//
// Returns an error if the client id is empty.
func NewClient(ep Endpoint, o ClientOptions) (*Client, error) {
	if o.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrConnectionFailed)
	}

	c := &Client{
		endpoint: ep,
		events:   make(chan Event, eventBufferSize),
		lost:     make(chan error, 1),
		closed:   make(chan struct{}),
		logger:   o.Logger,
	}

	opts := buildClientOptions(ep, o)

	// Every subscription shares this handler; messages become Poll events.
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.deliver(Event{
			Kind:    EventPublish,
			Topic:   msg.Topic(),
			Payload: msg.Payload(),
		})
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if err == nil {
			err = errors.New("connection closed by broker")
		}
		select {
		case c.lost <- err:
		default:
		}
	})

	c.options = opts
	c.client = pahomqtt.NewClient(opts)

	return c, nil
}

// Endpoint returns the endpoint this client was built for.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Poll returns the next event.
//
// When not connected it attempts a connection and yields EventConnAck on
// success or a wrapped ErrConnectionFailed. When connected it waits for an
// inbound message or for the connection to drop, in which case a wrapped
// ErrConnectionLost is returned and the next call reconnects.
func (c *Client) Poll(ctx context.Context) (Event, error) {
	select {
	case <-c.closed:
		return Event{}, ErrTransportClosed
	default:
	}

	if !c.IsConnected() {
		if err := c.connect(ctx); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventConnAck}, nil
	}

	select {
	case ev := <-c.events:
		return ev, nil
	case err := <-c.lost:
		c.setConnected(false)
		return Event{}, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	case <-c.closed:
		return Event{}, ErrTransportClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// connect performs one connection attempt.
func (c *Client) connect(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		c.abandon(token)
		return ctx.Err()
	case <-c.closed:
		c.abandon(token)
		return ErrTransportClosed
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.setConnected(true)
	return nil
}

// abandon tears down a connection that completes after nobody is waiting.
func (c *Client) abandon(token pahomqtt.Token) {
	go func() {
		token.Wait()
		if token.Error() == nil {
			c.client.Disconnect(0)
		}
	}()
}

// deliver hands an inbound message to Poll, giving up once closed.
func (c *Client) deliver(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closed:
		if c.logger != nil {
			c.logger.Warn("dropping MQTT message after disconnect", "topic", ev.Topic)
		}
	}
}

// Disconnect closes the transport. A blocked Poll returns ErrTransportClosed.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})

	if c.client.IsConnectionOpen() {
		c.client.Disconnect(defaultDisconnectQuiesce)
	}

	c.setConnected(false)
}

// IsConnected reports whether the last connection attempt succeeded and no
// loss has been reported by Poll since.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// waitToken waits for an acknowledgement, bounded by timeout and ctx.
func waitToken(ctx context.Context, token pahomqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("timeout after %v: %w", defaultOperationTimeout, ctx.Err())
	}
}
