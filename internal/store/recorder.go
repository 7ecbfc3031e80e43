package store

import (
	"context"
	"time"

	"github.com/nerrad567/notice-client/internal/notice"
)

// recordTimeout bounds a single history write.
const recordTimeout = 5 * time.Second

// Recorder is a notice.Observer that prepends every message to a History.
type Recorder struct {
	history History
	logger  Logger
}

// NewRecorder returns an observer writing to history.
func NewRecorder(history History, logger Logger) *Recorder {
	return &Recorder{history: history, logger: orNoop(logger)}
}

// Observe implements notice.Observer.
func (r *Recorder) Observe(ev notice.TopicEvent, _ []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.history.Prepend(ctx, ev.Stored()); err != nil {
		r.logger.Warn("recording message", "topic", ev.Topic, "error", err)
	}
}

var _ notice.Observer = (*Recorder)(nil)
