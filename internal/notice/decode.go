package notice

import (
	"encoding/json"
	"fmt"
)

// wireNotification mirrors the payload with presence tracking.
type wireNotification struct {
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	Extra     json.RawMessage `json:"extra"`
	Timestamp *Timestamp      `json:"timestamp"`
	Client    string          `json:"client"`
}

// Decode parses a notification payload.
//
// title, content and timestamp are required; extra and client are optional.
// A JSON null extra is treated as absent. Errors wrap ErrDecode, and a
// missing timestamp additionally matches ErrMissingTimestamp.
func Decode(payload []byte) (Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(payload, &w); err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if w.Timestamp == nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrDecode, ErrMissingTimestamp)
	}
	if w.Title == nil {
		return Notification{}, fmt.Errorf("%w: missing field \"title\"", ErrDecode)
	}
	if w.Content == nil {
		return Notification{}, fmt.Errorf("%w: missing field \"content\"", ErrDecode)
	}

	n := Notification{
		Title:     *w.Title,
		Content:   *w.Content,
		Timestamp: w.Timestamp.Time,
		Client:    w.Client,
	}

	if len(w.Extra) > 0 && string(w.Extra) != "null" {
		var extra any
		if err := json.Unmarshal(w.Extra, &extra); err != nil {
			return Notification{}, fmt.Errorf("%w: extra: %w", ErrDecode, err)
		}
		n.Extra = extra
	}

	return n, nil
}
