package connection

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
	"github.com/nerrad567/notice-client/internal/notice"
)

const (
	// DefaultReconnectDelay is the fixed pause between failed polls.
	DefaultReconnectDelay = 5 * time.Second

	// SubscribeQoS is the QoS requested for the configured topic (at least once).
	SubscribeQoS byte = 1

	// defaultStopTimeout bounds how long Disconnect waits for the loop to exit.
	defaultStopTimeout = 2 * time.Second

	// clientIDPrefix prefixes generated client ids.
	clientIDPrefix = "notice-"
)

// Logger defines the logging interface for the connection manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher consumes inbound message payloads. *notice.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(topic string, payload []byte) error
}

// Manager reconciles the desired client configuration with one live broker
// connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The lock guards field reads and writes only; it is never held across
//     network calls or event emission.
type Manager struct {
	dial           mqtt.Dialer
	emitter        notice.Emitter
	dispatcher     Dispatcher
	tlsConfig      *tls.Config
	reconnectDelay time.Duration
	stopTimeout    time.Duration
	logger         Logger

	mu        sync.Mutex
	cfg       ClientConfig
	state     State
	transport mqtt.Transport
	cancel    context.CancelFunc
	done      chan struct{}

	// loopCfg is the configuration the current attempt was started with.
	loopCfg ClientConfig

	// gen identifies the current connection attempt. Loops carry the value
	// they were started with and their updates are ignored once it moves on.
	gen uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the paho-backed transport factory.
func WithDialer(d mqtt.Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithEmitter sets the destination of "connection-state" events.
func WithEmitter(e notice.Emitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithDispatcher sets the consumer of inbound messages.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Manager) { m.dispatcher = d }
}

// WithTLSConfig sets the TLS configuration for ssl:// and wss:// servers.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(m *Manager) { m.tlsConfig = cfg }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Manager in the Disconnected state.
func New(cfg ClientConfig, opts ...Option) *Manager {
	m := &Manager{
		dial:           mqtt.Dial,
		reconnectDelay: DefaultReconnectDelay,
		stopTimeout:    defaultStopTimeout,
		logger:         noopLogger{},
		cfg:            cfg,
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the held client configuration.
func (m *Manager) Config() ClientConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UpdateConfig replaces the held configuration. A live connection is left
// untouched; the new values apply on the next Connect.
func (m *Manager) UpdateConfig(cfg ClientConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	m.logger.Debug("client config updated", "server", cfg.Server, "topic", cfg.Topic)
}

// Connect starts a connection using the held configuration.
//
// It returns once the receive loop is scheduled; the broker handshake
// completes asynchronously and is reported as a "connected" event.
// Calling Connect while Connected is a no-op, as is calling it while
// Connecting with an unchanged configuration. Otherwise any running loop is
// replaced: a loop retrying an unreachable server picks up a corrected
// configuration, and a loop retrying after a lost connection (state
// Disconnected) retries immediately.
//
// Returns an error wrapping ErrAddressParse if the server address is invalid.
// Broker-side failures never surface here.
func (m *Manager) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state == StateConnected || (m.state == StateConnecting && m.loopCfg == m.cfg) {
		m.mu.Unlock()
		return nil
	}
	was := m.state
	prev := m.detachLocked()
	m.gen++
	gen := m.gen
	cfg := m.cfg
	m.loopCfg = cfg
	m.state = StateConnecting
	m.mu.Unlock()

	m.stop(ctx, prev)
	if was == StateConnecting {
		m.logger.Info("restarting connection with new config", "server", cfg.Server, "topic", cfg.Topic)
	} else {
		m.emitState(StateConnecting)
	}

	ep, err := mqtt.ParseEndpoint(cfg.Server)
	if err != nil {
		m.abort(gen)
		return fmt.Errorf("%w: %w", ErrAddressParse, err)
	}

	opts := mqtt.ClientOptions{
		ClientID:  cfg.ClientID,
		Token:     cfg.Token,
		KeepAlive: mqtt.DefaultKeepAlive,
		TLSConfig: m.tlsConfig,
		Logger:    m.logger,
	}
	if opts.ClientID == "" {
		opts.ClientID = clientIDPrefix + uuid.NewString()
	}

	transport, err := m.dial(ep, opts)
	if err != nil {
		m.abort(gen)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	if m.gen != gen {
		// A concurrent Disconnect or Connect superseded this attempt.
		disconnected := m.state == StateDisconnected
		m.mu.Unlock()
		cancel()
		transport.Disconnect()
		if disconnected {
			m.emitState(StateDisconnected)
		}
		return nil
	}
	m.transport = transport
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("connecting to broker",
		"server", ep.String(),
		"client_id", opts.ClientID,
		"topic", cfg.Topic,
	)

	go m.run(loopCtx, loop{
		gen:       gen,
		transport: transport,
		topic:     cfg.Topic,
		done:      done,
	})

	return nil
}

// Disconnect stops the receive loop and closes the transport.
// It is idempotent; a "disconnected" event is emitted only if the state changed.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.detachLocked()
	m.gen++
	was := m.state
	m.state = StateDisconnected
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.stopTimeout)
	defer cancel()
	m.stop(ctx, prev)

	if was != StateDisconnected {
		m.logger.Info("disconnected from broker")
		m.emitState(StateDisconnected)
	}
}

// Close disconnects. It exists for shutdown paths that expect an io.Closer.
func (m *Manager) Close() error {
	m.Disconnect()
	return nil
}

// handle is a detached loop: everything needed to stop it.
type handle struct {
	cancel    context.CancelFunc
	transport mqtt.Transport
	done      chan struct{}
}

// detachLocked removes the current loop handle. Caller holds m.mu.
func (m *Manager) detachLocked() handle {
	h := handle{cancel: m.cancel, transport: m.transport, done: m.done}
	m.cancel = nil
	m.transport = nil
	m.done = nil
	return h
}

// stop cancels a detached loop, closes its transport and waits for it to
// exit or ctx to end.
func (m *Manager) stop(ctx context.Context, h handle) {
	if h.cancel != nil {
		h.cancel()
	}
	if h.transport != nil {
		h.transport.Disconnect()
	}
	if h.done == nil {
		return
	}

	select {
	case <-h.done:
	case <-ctx.Done():
		m.logger.Warn("receive loop did not stop in time")
	case <-time.After(m.stopTimeout):
		m.logger.Warn("receive loop did not stop in time")
	}
}

// abort reverts a failed Connect attempt to Disconnected.
//
// A superseded attempt may have emitted "connecting" after a concurrent
// Disconnect emitted "disconnected", so the final state is announced again.
func (m *Manager) abort(gen uint64) {
	m.mu.Lock()
	announce := m.state == StateDisconnected && m.gen != gen
	if m.gen == gen && m.state != StateDisconnected {
		m.state = StateDisconnected
		announce = true
	}
	m.mu.Unlock()

	if announce {
		m.emitState(StateDisconnected)
	}
}

// transition sets the state for loop gen and reports whether it changed.
// Updates from superseded loops are ignored.
func (m *Manager) transition(gen uint64, from []State, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.state == to {
		return false
	}
	if from != nil {
		allowed := false
		for _, s := range from {
			if m.state == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	m.state = to
	return true
}

func (m *Manager) emitState(s State) {
	if m.emitter != nil {
		m.emitter.Emit(notice.EventConnectionState, s.String())
	}
}
