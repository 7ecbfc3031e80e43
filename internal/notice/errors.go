package notice

import "errors"

// Domain-specific errors for notification decoding.
var (
	// ErrDecode is returned when a payload is not a valid notification.
	ErrDecode = errors.New("notice: invalid notification payload")

	// ErrMissingTimestamp is returned when the timestamp field is absent or null.
	ErrMissingTimestamp = errors.New("notice: missing timestamp")
)
