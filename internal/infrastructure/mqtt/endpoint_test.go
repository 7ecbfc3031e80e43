package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Endpoint
	}{
		{
			name:    "bare host",
			address: "broker.example.com",
			want:    Endpoint{Scheme: SchemePlain, Host: "broker.example.com", Port: 1883, Path: "/mqtt"},
		},
		{
			name:    "tls with explicit port",
			address: "ssl://h:9000",
			want:    Endpoint{Scheme: SchemeTLS, Host: "h", Port: 9000, Path: "/mqtt"},
		},
		{
			name:    "secure websocket with path",
			address: "wss://h/ws",
			want:    Endpoint{Scheme: SchemeWSS, Host: "h", Port: 8084, Path: "/ws"},
		},
		{
			name:    "websocket port and path",
			address: "ws://h:80/p",
			want:    Endpoint{Scheme: SchemeWS, Host: "h", Port: 80, Path: "/p"},
		},
		{
			name:    "plain with surrounding whitespace",
			address: "  tcp://localhost:1883  ",
			want:    Endpoint{Scheme: SchemePlain, Host: "localhost", Port: 1883, Path: "/mqtt"},
		},
		{
			name:    "tls default port",
			address: "ssl://secure.example.com",
			want:    Endpoint{Scheme: SchemeTLS, Host: "secure.example.com", Port: 8883, Path: "/mqtt"},
		},
		{
			name:    "websocket default port",
			address: "ws://h",
			want:    Endpoint{Scheme: SchemeWS, Host: "h", Port: 8083, Path: "/mqtt"},
		},
		{
			name:    "nested path kept verbatim",
			address: "ws://h:8080/a/b:c",
			want:    Endpoint{Scheme: SchemeWS, Host: "h", Port: 8080, Path: "/a/b:c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr error
	}{
		{name: "empty", address: "", wantErr: ErrEmptyHost},
		{name: "whitespace only", address: "   ", wantErr: ErrEmptyHost},
		{name: "scheme only", address: "tcp://", wantErr: ErrEmptyHost},
		{name: "port without host", address: ":1883", wantErr: ErrEmptyHost},
		{name: "non numeric port", address: "tcp://h:abc", wantErr: ErrInvalidPort},
		{name: "port out of range", address: "h:70000", wantErr: ErrInvalidPort},
		{name: "empty port", address: "h:", wantErr: ErrInvalidPort},
		{name: "unknown scheme treated as host", address: "mqtt://h", wantErr: ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEndpoint(tt.address)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "error = %v, want %v", err, tt.wantErr)
		})
	}
}

func TestParseEndpoint_InvalidPortCarriesValue(t *testing.T) {
	_, err := ParseEndpoint("tcp://h:abc")

	var portErr *InvalidPortError
	require.ErrorAs(t, err, &portErr)
	assert.Equal(t, "abc", portErr.Value)
}

func TestEndpoint_StringRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"bare host", "broker.example.com"},
		{"tls with port", "ssl://h:9000"},
		{"secure websocket path", "wss://h/ws"},
		{"websocket port and path", "ws://h:80/p"},
		{"ipv4 with path", "tcp://10.0.0.1:1884/custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.address)
			require.NoError(t, err)

			again, err := ParseEndpoint(ep.String())
			require.NoError(t, err)
			assert.Equal(t, ep, again)
		})
	}
}

func TestEndpoint_BrokerURL(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"h", "tcp://h:1883"},
		{"ssl://h", "ssl://h:8883"},
		{"ws://h", "ws://h:8083/mqtt"},
		{"wss://h:443/ws", "wss://h:443/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ep.BrokerURL())
		})
	}
}

func TestEndpoint_Flags(t *testing.T) {
	tests := []struct {
		scheme  Scheme
		wantWS  bool
		wantTLS bool
	}{
		{SchemePlain, false, false},
		{SchemeTLS, false, true},
		{SchemeWS, true, false},
		{SchemeWSS, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			ep := Endpoint{Scheme: tt.scheme, Host: "h"}
			assert.Equal(t, tt.wantWS, ep.IsWebSocket())
			assert.Equal(t, tt.wantTLS, ep.IsTLS())
		})
	}
}
