package notice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event names emitted to the UI layer.
const (
	// EventConnectionState carries a State string payload.
	EventConnectionState = "connection-state"

	// EventMessage carries a TopicEvent payload.
	EventMessage = "message"
)

// DefaultTitle replaces an empty title when displaying a notification.
const DefaultTitle = "Notice"

// unixMillisThreshold separates Unix seconds from milliseconds.
const unixMillisThreshold = 1e12

// Notification is a decoded inbound message.
type Notification struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Extra     any       `json:"extra,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Client tags the sender (web, cli, webhook, ...). Optional.
	Client string `json:"client,omitempty"`
}

// DisplayTitle returns the title shown to the user: defaultTitle when empty,
// prefixed with the sender tag when one is present.
func (n Notification) DisplayTitle(defaultTitle string) string {
	title := n.Title
	if title == "" {
		title = defaultTitle
	}
	if n.Client != "" {
		title = fmt.Sprintf("[%s] %s", n.Client, title)
	}
	return title
}

// TopicEvent pairs a notification with the topic it arrived on.
type TopicEvent struct {
	Topic   string       `json:"topic"`
	Message Notification `json:"message"`
}

// StoredMessage is one entry of the persisted message history.
type StoredMessage struct {
	Topic     string `json:"topic"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Stored converts the event into its history form.
func (e TopicEvent) Stored() StoredMessage {
	return StoredMessage{
		Topic:     e.Topic,
		Title:     e.Message.Title,
		Content:   e.Message.Content,
		Timestamp: e.Message.Timestamp.UTC().Format(time.RFC3339),
	}
}

// Timestamp decodes an RFC 3339 string or a Unix seconds/milliseconds number.
// Values of 1e12 and above are taken as milliseconds. The result is UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number: %w", err)
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", n, err)
	}
	if v >= unixMillisThreshold {
		t.Time = time.UnixMilli(v).UTC()
	} else {
		t.Time = time.Unix(v, 0).UTC()
	}
	return nil
}

// MarshalJSON writes RFC 3339 in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
