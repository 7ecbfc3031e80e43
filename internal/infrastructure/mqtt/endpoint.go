package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme is the transport variant selected by a broker address.
type Scheme int

// Supported transport schemes.
const (
	SchemePlain   Scheme = iota // tcp://
	SchemeTLS                   // ssl://
	SchemeWS                    // ws://
	SchemeWSS                   // wss://
)

// Default ports per scheme.
const (
	DefaultPortPlain uint16 = 1883
	DefaultPortTLS   uint16 = 8883
	DefaultPortWS    uint16 = 8083
	DefaultPortWSS   uint16 = 8084
)

// DefaultPath is used when an address carries no path.
const DefaultPath = "/mqtt"

// schemePrefixes lists address prefixes in match order.
var schemePrefixes = []struct {
	prefix string
	scheme Scheme
}{
	{"ssl://", SchemeTLS},
	{"tcp://", SchemePlain},
	{"wss://", SchemeWSS},
	{"ws://", SchemeWS},
}

// String returns the address prefix name of the scheme (tcp, ssl, ws, wss).
func (s Scheme) String() string {
	switch s {
	case SchemePlain:
		return "tcp"
	case SchemeTLS:
		return "ssl"
	case SchemeWS:
		return "ws"
	case SchemeWSS:
		return "wss"
	default:
		return "unknown"
	}
}

// DefaultPort returns the port used when an address omits one.
func (s Scheme) DefaultPort() uint16 {
	switch s {
	case SchemeTLS:
		return DefaultPortTLS
	case SchemeWS:
		return DefaultPortWS
	case SchemeWSS:
		return DefaultPortWSS
	default:
		return DefaultPortPlain
	}
}

// Endpoint is a resolved broker address.
//
// Endpoints are plain values: they are created fresh by ParseEndpoint for
// each connection attempt and never mutated.
type Endpoint struct {
	Scheme Scheme
	Host   string
	Port   uint16
	Path   string
}

// ParseEndpoint resolves a human-supplied address of the form
// [scheme://]host[:port][/path] where scheme is one of tcp, ssl, ws or wss.
//
// Missing parts take defaults: scheme tcp, the scheme's default port and
// path "/mqtt". The host:port split happens at the last colon, so IPv6
// literals are not supported.
//
// Errors:
//   - ErrEmptyHost when no host is present (including an empty address)
//   - *InvalidPortError (matching ErrInvalidPort) when the port is not a uint16
func ParseEndpoint(address string) (Endpoint, error) {
	rest := strings.TrimSpace(address)

	ep := Endpoint{Scheme: SchemePlain}
	for _, p := range schemePrefixes {
		if strings.HasPrefix(rest, p.prefix) {
			ep.Scheme = p.scheme
			rest = rest[len(p.prefix):]
			break
		}
	}

	hostPort := rest
	ep.Path = DefaultPath
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		hostPort = rest[:idx]
		ep.Path = rest[idx:]
	}

	ep.Host = hostPort
	ep.Port = ep.Scheme.DefaultPort()
	if idx := strings.LastIndexByte(hostPort, ':'); idx >= 0 {
		ep.Host = hostPort[:idx]
		portStr := hostPort[idx+1:]
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return Endpoint{}, &InvalidPortError{Value: portStr}
		}
		ep.Port = uint16(port)
	}

	if ep.Host == "" {
		return Endpoint{}, ErrEmptyHost
	}

	return ep, nil
}

// IsWebSocket reports whether the endpoint uses a WebSocket transport.
func (e Endpoint) IsWebSocket() bool {
	return e.Scheme == SchemeWS || e.Scheme == SchemeWSS
}

// IsTLS reports whether the endpoint requires TLS.
func (e Endpoint) IsTLS() bool {
	return e.Scheme == SchemeTLS || e.Scheme == SchemeWSS
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// String formats the endpoint as scheme://host:port/path.
// The result parses back to an identical Endpoint.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s:%d%s", e.Scheme, e.Host, e.Port, e.Path)
}

// BrokerURL returns the URL handed to the transport.
// TCP variants carry no path; WebSocket variants keep it.
func (e Endpoint) BrokerURL() string {
	if e.IsWebSocket() {
		return e.String()
	}
	return fmt.Sprintf("%s://%s", e.Scheme, e.Address())
}
