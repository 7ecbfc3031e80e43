// Package mqtttest runs an in-process MQTT broker for tests.
package mqtttest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Broker is a running test broker.
type Broker struct {
	Server *mqtt.Server

	// TCPAddr and WSAddr are host:port pairs of the listeners.
	TCPAddr string
	WSAddr  string

	closeOnce sync.Once
}

type options struct {
	token string
	ws    bool
}

// Option configures Start.
type Option func(*options)

// WithToken requires clients to present token as their username.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithWebsocket adds a WebSocket listener.
func WithWebsocket() Option {
	return func(o *options) { o.ws = true }
}

// Start launches a broker on free loopback ports and stops it on test cleanup.
func Start(t testing.TB, opts ...Option) *Broker {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if o.token != "" {
		if err := server.AddHook(&tokenHook{token: []byte(o.token)}, nil); err != nil {
			t.Fatalf("adding token hook: %v", err)
		}
	} else if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("adding allow hook: %v", err)
	}

	b := &Broker{Server: server, TCPAddr: FreeAddr(t)}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: b.TCPAddr})
	if err := server.AddListener(tcp); err != nil {
		t.Fatalf("adding tcp listener: %v", err)
	}

	if o.ws {
		b.WSAddr = FreeAddr(t)
		ws := listeners.NewWebsocket(listeners.Config{ID: "ws", Address: b.WSAddr})
		if err := server.AddListener(ws); err != nil {
			t.Fatalf("adding websocket listener: %v", err)
		}
	}

	go func() {
		_ = server.Serve()
	}()

	t.Cleanup(b.Close)

	waitListening(t, b.TCPAddr)
	if b.WSAddr != "" {
		waitListening(t, b.WSAddr)
	}

	return b
}

// Close stops the broker, dropping every client connection. Safe to call twice.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		_ = b.Server.Close()
	})
}

// URL returns the tcp:// broker address.
func (b *Broker) URL() string {
	return "tcp://" + b.TCPAddr
}

// WebsocketURL returns the ws:// broker address with the /mqtt path.
func (b *Broker) WebsocketURL() string {
	return "ws://" + b.WSAddr + "/mqtt"
}

// Publish injects a message as if sent by another client.
func (b *Broker) Publish(t testing.TB, topic string, payload []byte, retain bool) {
	t.Helper()
	if err := b.Server.Publish(topic, payload, retain, 1); err != nil {
		t.Fatalf("publishing %s: %v", topic, err)
	}
}

// FreeAddr returns a loopback address with a currently unused port.
func FreeAddr(t testing.TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitListening(t testing.TB, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("broker did not start listening on %s", addr)
}

// tokenHook accepts clients whose username equals the token.
type tokenHook struct {
	mqtt.HookBase
	token []byte
}

func (h *tokenHook) ID() string {
	return "token-auth"
}

func (h *tokenHook) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnConnectAuthenticate, mqtt.OnACLCheck}, []byte{b})
}

func (h *tokenHook) OnConnectAuthenticate(_ *mqtt.Client, pk packets.Packet) bool {
	return bytes.Equal(pk.Connect.Username, h.token)
}

func (h *tokenHook) OnACLCheck(_ *mqtt.Client, _ string, _ bool) bool {
	return true
}

// String describes the broker for test logs.
func (b *Broker) String() string {
	return fmt.Sprintf("mqtttest.Broker{tcp=%s ws=%s}", b.TCPAddr, b.WSAddr)
}
