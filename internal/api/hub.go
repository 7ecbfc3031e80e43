package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/notice-client/internal/infrastructure/config"
	"github.com/nerrad567/notice-client/internal/infrastructure/logging"
	"github.com/nerrad567/notice-client/internal/notice"
)

// Channel is an event stream a WebSocket client can subscribe to. Channel
// names equal the event names emitted by the connection manager and the
// dispatcher.
type Channel string

// Subscribable channels.
const (
	ChannelConnectionState Channel = notice.EventConnectionState
	ChannelMessage         Channel = notice.EventMessage
)

// channelBits maps each channel to its bit in a channelSet.
var channelBits = map[Channel]channelSet{
	ChannelConnectionState: 1 << 0,
	ChannelMessage:         1 << 1,
}

// channelSet is a client's subscriptions as a bit mask.
type channelSet uint8

func (s channelSet) has(ch Channel) bool {
	return s&channelBits[ch] != 0
}

// parseChannels validates requested channel names. Unknown names are
// rejected as a whole so a typo never yields a silent partial subscription.
func parseChannels(names []string) (channelSet, []Channel, error) {
	if len(names) == 0 {
		return 0, nil, errors.New("no channels given")
	}

	var set channelSet
	chans := make([]Channel, 0, len(names))
	for _, name := range names {
		bit, ok := channelBits[Channel(name)]
		if !ok {
			return 0, nil, fmt.Errorf("unknown channel %q (want %s or %s)",
				name, ChannelConnectionState, ChannelMessage)
		}
		if set&bit == 0 {
			chans = append(chans, Channel(name))
		}
		set |= bit
	}
	return set, chans, nil
}

// Hub fans notice events out to WebSocket clients.
//
// Hub implements notice.Emitter. It remembers the last connection state so a
// client subscribing to ChannelConnectionState learns the current state
// without waiting for the next transition.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - A client's send channel is written only under the read lock and closed
//     only under the write lock, so a send never races a close.
type Hub struct {
	timing  wsTiming
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	state   string
	dropped uint64
}

// NewHub creates a hub. The connection state starts as "disconnected".
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timing:  newWSTiming(cfg),
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
		state:   "disconnected",
	}
}

// Emit implements notice.Emitter. Events other than the known channels are
// ignored.
func (h *Hub) Emit(event string, payload any) {
	ch := Channel(event)
	if _, ok := channelBits[ch]; !ok {
		h.logger.Debug("ignoring event without channel", "event", event)
		return
	}

	if ch == ChannelConnectionState {
		if s, ok := payload.(string); ok {
			h.mu.Lock()
			h.state = s
			h.mu.Unlock()
		}
	}

	data, err := encodeFrame(Frame{Type: FrameEvent, EventType: event, Payload: payload})
	if err != nil {
		h.logger.Error("encoding event frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	recipients, dropped := 0, 0
	for c := range h.clients {
		if !c.subscribed().has(ch) {
			continue
		}
		if c.enqueue(data) {
			recipients++
		} else {
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.mu.Lock()
		h.dropped += uint64(dropped)
		h.mu.Unlock()
		h.logger.Warn("websocket clients too slow, event dropped", "event", event, "clients", dropped)
	}
	if recipients > 0 {
		h.logger.Debug("event broadcast", "event", event, "recipients", recipients)
	}
}

// ConnectionState returns the last state seen on ChannelConnectionState.
func (h *Hub) ConnectionState() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Dropped returns how many event frames were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", n)
}

// unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("websocket client disconnected", "subject", c.subject, "clients", n)
	}
}

// reply queues a frame for one client if it is still registered.
func (h *Hub) reply(c *WSClient, f Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		h.logger.Error("encoding reply frame", "type", f.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.enqueue(data)
	}
}

// subscribe adds channels to c and, for ChannelConnectionState, queues the
// current state right after the acknowledgement.
func (h *Hub) subscribe(c *WSClient, id string, names []string) {
	set, chans, err := parseChannels(names)
	if err != nil {
		h.reply(c, errorFrame(id, err.Error()))
		return
	}

	c.mu.Lock()
	c.subs |= set
	c.mu.Unlock()

	h.logger.Info("websocket client subscribed", "channels", chans, "subject", c.subject, "role", c.role)
	h.reply(c, Frame{Type: FrameResponse, ID: id, Payload: map[string]any{"subscribed": chans}})

	if set.has(ChannelConnectionState) {
		h.reply(c, Frame{Type: FrameEvent, EventType: string(ChannelConnectionState), Payload: h.ConnectionState()})
	}
}

func (h *Hub) unsubscribe(c *WSClient, id string, names []string) {
	set, chans, err := parseChannels(names)
	if err != nil {
		h.reply(c, errorFrame(id, err.Error()))
		return
	}

	c.mu.Lock()
	c.subs &^= set
	c.mu.Unlock()

	h.reply(c, Frame{Type: FrameResponse, ID: id, Payload: map[string]any{"unsubscribed": chans}})
}

// closeAll disconnects every client; their write pumps see the closed
// channel and send a close frame.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// encodeFrame stamps f with the current time and marshals it.
func encodeFrame(f Frame) ([]byte, error) {
	f.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(f)
}

var _ notice.Emitter = (*Hub)(nil)
