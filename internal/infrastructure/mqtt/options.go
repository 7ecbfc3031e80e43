package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	// DefaultKeepAlive is the keep-alive interval negotiated with the broker.
	DefaultKeepAlive = 30 * time.Second

	// defaultConnectTimeout is the maximum time to wait for a CONNACK.
	defaultConnectTimeout = 10 * time.Second

	// defaultOperationTimeout bounds publish and subscribe acknowledgements.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// eventBufferSize is the number of inbound messages buffered between
	// paho's router and Poll.
	eventBufferSize = 64

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// ClientOptions holds the per-connection settings derived from the client
// record and daemon configuration.
type ClientOptions struct {
	// ClientID identifies the session to the broker. Must be non-empty.
	ClientID string

	// Token is sent as the MQTT username when set; the password stays empty.
	Token string

	// KeepAlive defaults to DefaultKeepAlive.
	KeepAlive time.Duration

	// ConnectTimeout defaults to 10s.
	ConnectTimeout time.Duration

	// TLSConfig is used for ssl:// and wss:// endpoints. When nil a config
	// with TLS 1.2 minimum and system roots is used.
	TLSConfig *tls.Config

	// Logger receives subscribe failures and dropped messages. Optional.
	Logger Logger
}

// buildClientOptions creates paho MQTT options for an endpoint.
//
// This configures:
//   - Broker URL (scheme and path from the endpoint)
//   - Client ID for identification
//   - Token credentials (if provided)
//   - Clean session, no auto-reconnect (the caller's poll loop owns retry)
//   - TLS configuration for ssl:// and wss://
func buildClientOptions(ep Endpoint, o ClientOptions) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(ep.BrokerURL())
	opts.SetClientID(o.ClientID)

	// Authentication: the token travels as the username.
	if o.Token != "" {
		opts.SetUsername(o.Token)
		opts.SetPassword("")
	}

	// Clean session - no persistent session on broker
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	connectTimeout := o.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	opts.SetConnectTimeout(connectTimeout)

	keepAlive := o.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	// Deliver messages in arrival order through a single router goroutine.
	opts.SetOrderMatters(true)

	if ep.IsTLS() {
		opts.SetTLSConfig(tlsConfigFor(ep, o.TLSConfig))
	}

	return opts
}

// tlsConfigFor clones base (or a default) and fills in the server name.
func tlsConfigFor(ep Endpoint, base *tls.Config) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.MinVersion < tlsMinVersion {
		cfg.MinVersion = tlsMinVersion
	}
	if cfg.ServerName == "" {
		cfg.ServerName = ep.Host
	}
	return cfg
}

// LoadTLSConfig builds a client TLS configuration.
//
// When caFile is set only its PEM certificates are trusted; otherwise system
// roots apply. insecureSkipVerify disables
// certificate verification and is meant for development brokers only.
func LoadTLSConfig(caFile string, insecureSkipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tlsMinVersion,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // opt-in via config for self-signed dev brokers
	}

	if caFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading CA file: %w", ErrInvalidTLSConfig, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificates found in %s", ErrInvalidTLSConfig, caFile)
	}
	cfg.RootCAs = pool

	return cfg, nil
}
