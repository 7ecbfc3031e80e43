package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/notice-client/internal/auth"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
)

// Frame types exchanged over the event socket.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameResponse    = "response"
	FrameError       = "error"
)

// clientQueueSize is the number of frames buffered per client before events
// are dropped for it.
const clientQueueSize = 64

// Frame is one JSON message on the event socket. Events carry the channel
// name in EventType; requests and their replies share ID.
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// SubscribeRequest is the payload of subscribe and unsubscribe frames.
type SubscribeRequest struct {
	Channels []string `json:"channels"`
}

// inboundFrame defers decoding the payload until the type is known.
type inboundFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func errorFrame(id, message string) Frame {
	return Frame{Type: FrameError, ID: id, Payload: map[string]string{"message": message}}
}

// wsTiming holds the keep-alive settings derived from the websocket section.
type wsTiming struct {
	ping     time.Duration
	pongWait time.Duration
	maxRead  int64
}

// Fallbacks for zero websocket settings.
const (
	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second
	defaultMaxMessageSize = 8192
)

func newWSTiming(cfg config.WebSocketConfig) wsTiming {
	t := wsTiming{
		ping:     time.Duration(cfg.PingInterval) * time.Second,
		pongWait: time.Duration(cfg.PongTimeout) * time.Second,
		maxRead:  int64(cfg.MaxMessageSize),
	}
	if t.ping <= 0 {
		t.ping = defaultPingInterval
	}
	if t.pongWait <= 0 {
		t.pongWait = defaultPongTimeout
	}
	if t.maxRead <= 0 {
		t.maxRead = defaultMaxMessageSize
	}
	return t
}

// readDeadline is how long a silent peer is tolerated.
func (t wsTiming) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pongWait)
}

// WSClient is one connected event socket.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	subs channelSet

	// subject and role come from the token; empty when auth is disabled.
	subject string
	role    auth.Role
}

func (c *WSClient) subscribed() channelSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

// enqueue offers data without blocking. Caller holds the hub read lock.
func (c *WSClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Origins are checked by the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades to the event socket. When an API secret is set the
// token query parameter must carry the events:watch permission.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var claims *auth.CustomClaims
	if s.secCfg.APISecret != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeUnauthorized(w, "token query parameter is required")
			return
		}
		var err error
		claims, err = auth.ParseToken(token, s.secCfg.APISecret)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		if !auth.HasPermission(claims.Role, auth.PermEventsWatch) {
			writeForbidden(w, "missing permission "+string(auth.PermEventsWatch))
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}
	if claims != nil {
		c.subject = claims.Subject
		c.role = claims.Role
	}

	s.hub.register(c)

	go c.writeLoop(s.hub.timing)
	go c.readLoop(s.hub.timing)
}

// readLoop handles client requests until the socket fails.
func (c *WSClient) readLoop(t wsTiming) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(t.maxRead)
	_ = c.conn.SetReadDeadline(t.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any request counts as life.
		_ = c.conn.SetReadDeadline(t.readDeadline())
		c.handle(data)
	}
}

// writeLoop drains the send queue and pings the peer.
func (c *WSClient) writeLoop(t wsTiming) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(t.pongWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one client request.
func (c *WSClient) handle(data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		c.hub.reply(c, errorFrame("", "invalid JSON message"))
		return
	}

	switch in.Type {
	case FrameSubscribe, FrameUnsubscribe:
		var req SubscribeRequest
		if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &req) != nil {
			c.hub.reply(c, errorFrame(in.ID, "payload must be {\"channels\": [...]}"))
			return
		}
		if in.Type == FrameSubscribe {
			c.hub.subscribe(c, in.ID, req.Channels)
		} else {
			c.hub.unsubscribe(c, in.ID, req.Channels)
		}
	case FramePing:
		c.hub.reply(c, Frame{Type: FramePong, ID: in.ID})
	default:
		c.hub.reply(c, errorFrame(in.ID, "unknown message type: "+in.Type))
	}
}
