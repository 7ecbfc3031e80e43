package connection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
)

// loop is the per-connection state handed to run.
type loop struct {
	gen       uint64
	transport mqtt.Transport
	topic     string
	done      chan struct{}
}

// run polls the transport until ctx is cancelled or the transport is closed.
func (m *Manager) run(ctx context.Context, l loop) {
	defer close(l.done)

	for {
		ev, err := l.transport.Poll(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if errors.Is(err, mqtt.ErrTransportClosed) {
				return
			}
			m.onTransportError(l, err)
			if !sleep(ctx, m.reconnectDelay) {
				return
			}
			continue
		}

		switch ev.Kind {
		case mqtt.EventConnAck:
			m.onConnAck(ctx, l)
		case mqtt.EventPublish:
			m.onPublish(ev)
		default:
			m.logger.Debug("ignoring transport event", "kind", ev.Kind.String())
		}
	}
}

func (m *Manager) onConnAck(ctx context.Context, l loop) {
	if m.transition(l.gen, nil, StateConnected) {
		m.logger.Info("connected to broker")
		m.emitState(StateConnected)
	}

	if err := l.transport.Subscribe(ctx, l.topic, SubscribeQoS); err != nil {
		m.logger.Warn("subscribe failed",
			"topic", l.topic,
			"error", err,
		)
		return
	}
	m.logger.Debug("subscription requested", "topic", l.topic)
}

func (m *Manager) onPublish(ev mqtt.Event) {
	payload := []byte(strings.ToValidUTF8(string(ev.Payload), "\uFFFD"))

	if m.dispatcher == nil {
		return
	}
	// The dispatcher logs decode failures itself; the frame is dropped.
	_ = m.dispatcher.Dispatch(ev.Topic, payload)
}

func (m *Manager) onTransportError(l loop, err error) {
	if m.transition(l.gen, []State{StateConnected}, StateDisconnected) {
		m.emitState(StateDisconnected)
	}

	m.logger.Warn("broker connection error, retrying",
		"error", err,
		"retry_in", m.reconnectDelay.String(),
	)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
