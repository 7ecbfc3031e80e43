package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/notice-client/internal/notice"
)

// MaxMessages is the history cap applied on every save.
const MaxMessages = 100

// History is an ordered message history, newest first.
type History interface {
	// Load returns the stored messages. Failures yield an empty slice.
	Load(ctx context.Context) []notice.StoredMessage

	// Save replaces the history with the first MaxMessages entries of msgs.
	Save(ctx context.Context, msgs []notice.StoredMessage) error

	// Prepend adds msg as the newest entry, dropping the oldest beyond the cap.
	Prepend(ctx context.Context, msg notice.StoredMessage) error

	Close() error
}

// capMessages keeps the first MaxMessages entries.
func capMessages(msgs []notice.StoredMessage) []notice.StoredMessage {
	if len(msgs) > MaxMessages {
		return msgs[:MaxMessages]
	}
	return msgs
}

// JSONHistory stores the history in messages.json.
type JSONHistory struct {
	path   string
	logger Logger
	mu     sync.Mutex
}

// NewJSONHistory returns a history backed by <dir>/messages.json.
func NewJSONHistory(dir string, logger Logger) *JSONHistory {
	return &JSONHistory{
		path:   filepath.Join(dir, MessagesFile),
		logger: orNoop(logger),
	}
}

// Load implements History.
func (h *JSONHistory) Load(_ context.Context) []notice.StoredMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked()
}

func (h *JSONHistory) loadLocked() []notice.StoredMessage {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("reading message history", "path", h.path, "error", err)
		}
		return []notice.StoredMessage{}
	}

	var msgs []notice.StoredMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		h.logger.Warn("parsing message history", "path", h.path, "error", err)
		return []notice.StoredMessage{}
	}
	if msgs == nil {
		msgs = []notice.StoredMessage{}
	}
	return msgs
}

// Save implements History.
func (h *JSONHistory) Save(_ context.Context, msgs []notice.StoredMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveLocked(msgs)
}

func (h *JSONHistory) saveLocked(msgs []notice.StoredMessage) error {
	msgs = capMessages(msgs)
	if msgs == nil {
		msgs = []notice.StoredMessage{}
	}

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding messages: %w", ErrPersistence, err)
	}
	return writeFile(h.path, data)
}

// Prepend implements History.
func (h *JSONHistory) Prepend(_ context.Context, msg notice.StoredMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := h.loadLocked()
	msgs = append([]notice.StoredMessage{msg}, msgs...)
	return h.saveLocked(msgs)
}

// Close implements History.
func (h *JSONHistory) Close() error {
	return nil
}
