package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/notice-client/internal/notice"
)

// Measurement names.
const (
	MeasurementMessages   = "notice_messages"
	MeasurementConnection = "notice_connection"
)

// WriteMessage records one received notification.
//
// Tags are the topic and, when present, the sender tag. Fields carry the
// payload size, the content length, whether extra data was attached and the
// delay between the message timestamp and receipt.
func (c *Client) WriteMessage(ev notice.TopicEvent, payloadBytes int) {
	now := time.Now()

	tags := map[string]string{
		"topic": ev.Topic,
	}
	if ev.Message.Client != "" {
		tags["client"] = ev.Message.Client
	}

	fields := map[string]interface{}{
		"payload_bytes":  payloadBytes,
		"content_length": len(ev.Message.Content),
		"has_extra":      ev.Message.Extra != nil,
	}
	if !ev.Message.Timestamp.IsZero() {
		fields["latency_ms"] = now.Sub(ev.Message.Timestamp).Milliseconds()
	}

	c.write(MeasurementMessages, tags, fields, now)
}

// WriteConnectionState records a connection state change.
// The connected field is 1 for "connected" and 0 otherwise, so it can be
// graphed directly.
func (c *Client) WriteConnectionState(state string) {
	connected := 0
	if state == "connected" {
		connected = 1
	}
	c.write(MeasurementConnection,
		map[string]string{"state": state},
		map[string]interface{}{"connected": connected},
		time.Now(),
	)
}

// write queues one point unless the client is closed.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
	c.points.Add(1)
}

// Observe implements notice.Observer.
func (c *Client) Observe(ev notice.TopicEvent, raw []byte) {
	c.WriteMessage(ev, len(raw))
}

// Emit implements notice.Emitter. Only connection state events are recorded;
// messages arrive through Observe.
func (c *Client) Emit(event string, payload any) {
	if event != notice.EventConnectionState {
		return
	}
	if state, ok := payload.(string); ok {
		c.WriteConnectionState(state)
	}
}

var (
	_ notice.Observer = (*Client)(nil)
	_ notice.Emitter  = (*Client)(nil)
)
