package notice

import (
	"fmt"
	"sync"
)

// Emitter forwards named events to the UI layer.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any)

// Emit calls f(event, payload).
func (f EmitterFunc) Emit(event string, payload any) {
	f(event, payload)
}

// Emitters fans one event out to several emitters in order.
func Emitters(emitters ...Emitter) Emitter {
	return EmitterFunc(func(event string, payload any) {
		for _, e := range emitters {
			if e != nil {
				e.Emit(event, payload)
			}
		}
	})
}

// Notifier displays a notification to the user.
type Notifier interface {
	Notify(title, body string) error
}

// Observer receives every successfully decoded message after it has been
// emitted. raw is the payload as received (after UTF-8 repair).
// Implementations must not block for long.
type Observer interface {
	Observe(ev TopicEvent, raw []byte)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev TopicEvent, raw []byte)

// Observe calls f(ev, raw).
func (f ObserverFunc) Observe(ev TopicEvent, raw []byte) {
	f(ev, raw)
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher decodes inbound payloads and routes them to the emitter,
// the notifier and observers.
//
// Thread Safety:
//   - Dispatch is safe for concurrent use.
//   - AddObserver may be called while messages are flowing.
type Dispatcher struct {
	emitter      Emitter
	notifier     Notifier
	defaultTitle string
	logger       Logger

	mu        sync.RWMutex
	observers []Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier sets the desktop notifier.
func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithDefaultTitle overrides DefaultTitle.
func WithDefaultTitle(title string) DispatcherOption {
	return func(d *Dispatcher) {
		if title != "" {
			d.defaultTitle = title
		}
	}
}

// WithLogger sets the logger used for dropped payloads and notifier failures.
func WithLogger(l Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObservers registers observers at construction time.
func WithObservers(obs ...Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observers = append(d.observers, obs...) }
}

// NewDispatcher creates a Dispatcher. emitter may be nil.
func NewDispatcher(emitter Emitter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		emitter:      emitter,
		defaultTitle: DefaultTitle,
		logger:       noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddObserver registers an observer for subsequent messages.
func (d *Dispatcher) AddObserver(o Observer) {
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

// Dispatch decodes payload and delivers it.
//
// On success the "message" event is emitted first, then the notifier is
// asked to display it, then observers run. A notifier failure is logged and
// does not stop delivery. On decode failure nothing is delivered; the error
// is logged and returned.
func (d *Dispatcher) Dispatch(topic string, payload []byte) error {
	n, err := Decode(payload)
	if err != nil {
		d.logger.Warn("dropping undecodable message",
			"topic", topic,
			"error", err,
		)
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	ev := TopicEvent{Topic: topic, Message: n}

	d.logger.Debug("message received",
		"topic", topic,
		"title", n.Title,
	)

	if d.emitter != nil {
		d.emitter.Emit(EventMessage, ev)
	}

	if d.notifier != nil {
		if err := d.notifier.Notify(n.DisplayTitle(d.defaultTitle), n.Content); err != nil {
			d.logger.Warn("notification display failed",
				"topic", topic,
				"error", err,
			)
		}
	}

	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()

	for _, o := range observers {
		o.Observe(ev, payload)
	}

	return nil
}
