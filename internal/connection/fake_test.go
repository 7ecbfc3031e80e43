package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
)

// step is one scripted Poll result.
type step struct {
	ev  mqtt.Event
	err error
}

// fakeTransport replays scripted Poll results.
type fakeTransport struct {
	steps     chan step
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	subscribed  []string
	disconnects int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		steps:  make(chan step, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Poll(ctx context.Context) (mqtt.Event, error) {
	select {
	case s := <-f.steps:
		return s.ev, s.err
	case <-f.closed:
		return mqtt.Event{}, mqtt.ErrTransportClosed
	case <-ctx.Done():
		return mqtt.Event{}, ctx.Err()
	}
}

func (f *fakeTransport) Subscribe(_ context.Context, filter string, _ byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, filter)
	return nil
}

func (f *fakeTransport) Publish(context.Context, string, []byte, byte, bool) error {
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.closeOnce.Do(func() { close(f.closed) })
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeTransport) connAck() {
	f.steps <- step{ev: mqtt.Event{Kind: mqtt.EventConnAck}}
}

func (f *fakeTransport) publish(topic, payload string) {
	f.steps <- step{ev: mqtt.Event{Kind: mqtt.EventPublish, Topic: topic, Payload: []byte(payload)}}
}

func (f *fakeTransport) fail(err error) {
	f.steps <- step{err: err}
}

func (f *fakeTransport) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

func (f *fakeTransport) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// fakeDialer hands out a fresh fakeTransport per dial and records arguments.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	endpoints  []mqtt.Endpoint
	options    []mqtt.ClientOptions
}

func (d *fakeDialer) Dial(ep mqtt.Endpoint, opts mqtt.ClientOptions) (mqtt.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := newFakeTransport()
	d.transports = append(d.transports, t)
	d.endpoints = append(d.endpoints, ep)
	d.options = append(d.options, opts)
	return t, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) last(t *testing.T) *fakeTransport {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		t.Fatal("no transport dialed")
	}
	return d.transports[len(d.transports)-1]
}

// stateRecorder collects "connection-state" and "message" events.
type stateRecorder struct {
	mu       sync.Mutex
	states   []string
	messages []any
}

func (r *stateRecorder) Emit(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event {
	case "connection-state":
		r.states = append(r.states, payload.(string))
	case "message":
		r.messages = append(r.messages, payload)
	}
}

func (r *stateRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func (r *stateRecorder) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// dispatchRecorder captures raw dispatched payloads.
type dispatchRecorder struct {
	mu       sync.Mutex
	payloads []string
}

func (d *dispatchRecorder) Dispatch(_ string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, string(payload))
	return nil
}

func (d *dispatchRecorder) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.payloads...)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
