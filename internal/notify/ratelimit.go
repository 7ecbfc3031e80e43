package notify

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/notice-client/internal/notice"
)

// ErrRateLimited is returned by RateLimited when a notification is dropped.
var ErrRateLimited = errors.New("notify: rate limited")

// RateLimited throttles a Notifier with a token bucket.
//
// A burst of messages (for example a retained backlog on reconnect) would
// otherwise flood the desktop. Dropped notifications are not queued; the
// message itself is still emitted and recorded by the dispatcher.
type RateLimited struct {
	next    notice.Notifier
	limiter *rate.Limiter
	logger  Logger
}

// NewRateLimited wraps next so that at most perMinute notifications are
// shown per minute, with up to burst shown back to back. perMinute <= 0
// returns next unchanged.
func NewRateLimited(next notice.Notifier, perMinute, burst int, logger Logger) notice.Notifier {
	if perMinute <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		logger:  orNoop(logger),
	}
}

// Notify implements notice.Notifier.
func (r *RateLimited) Notify(title, body string) error {
	if !r.limiter.Allow() {
		r.logger.Debug("notification throttled", "title", title)
		return ErrRateLimited
	}
	return r.next.Notify(title, body)
}

var _ notice.Notifier = (*RateLimited)(nil)
