package mqtt

import (
	"context"
	"fmt"
)

// Subscribe enqueues a subscription on the live connection and returns
// without waiting for the broker's SUBACK.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "notice/+/alerts"
//   - # (multi-level): "notice/#"
//
// Matching messages are yielded by Poll as EventPublish. A rejected or
// timed-out subscription is reported through the logger only, because the
// acknowledgement is processed by paho while Poll may still be draining
// messages. Subscriptions do not survive reconnection; subscribe again after
// each EventConnAck.
//
// Returns ErrInvalidTopic, ErrInvalidQoS or ErrNotConnected for requests that
// cannot be sent.
func (c *Client) Subscribe(ctx context.Context, filter string, qos byte) error {
	if err := ValidateTopicFilter(filter); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// nil handler routes messages through the default publish handler.
	token := c.client.Subscribe(filter, qos, nil)

	go func() {
		if err := waitToken(ctx, token); err != nil && c.logger != nil {
			c.logger.Warn("MQTT subscribe failed",
				"topic", filter,
				"error", fmt.Errorf("%w: %w", ErrSubscribeFailed, err),
			)
		}
	}()

	return nil
}
