package notify

import (
	"errors"
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/nerrad567/notice-client/internal/notice"
)

// ErrNotify wraps failures reported by the platform notification service.
var ErrNotify = errors.New("notify: display failed")

// Desktop shows notifications through the operating system's notification
// service (libnotify/D-Bus, Windows toasts, macOS Notification Center).
type Desktop struct {
	// Icon is an optional path to an icon file.
	Icon string

	notify func(title, message, icon string) error
}

// NewDesktop returns a Desktop notifier.
func NewDesktop(icon string) *Desktop {
	return &Desktop{Icon: icon, notify: beeep.Notify}
}

// Notify implements notice.Notifier.
func (d *Desktop) Notify(title, body string) error {
	if err := d.notify(title, body, d.Icon); err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return nil
}

var _ notice.Notifier = (*Desktop)(nil)
