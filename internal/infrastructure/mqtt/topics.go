package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicFilter is the subscription used by a fresh client record.
const DefaultTopicFilter = "notice/#"

// maxTopicLength is the MQTT limit on encoded topic strings.
const maxTopicLength = 65535

// ValidateTopicFilter checks a subscription filter.
//
// Rules (MQTT 3.1.1 §4.7):
//   - non-empty, at most 65535 bytes, no NUL characters
//   - '+' must occupy a whole level
//   - '#' must occupy the whole last level
func ValidateTopicFilter(filter string) error {
	if err := validateTopicCommon(filter); err != nil {
		return err
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: %q: '+' must occupy an entire level", ErrInvalidTopic, filter)
		}
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: %q: '#' must be the last level on its own", ErrInvalidTopic, filter)
		}
	}

	return nil
}

// ValidateTopicName checks a topic used for publishing. Wildcards are not allowed.
func ValidateTopicName(topic string) error {
	if err := validateTopicCommon(topic); err != nil {
		return err
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q: wildcards are not allowed when publishing", ErrInvalidTopic, topic)
	}
	return nil
}

func validateTopicCommon(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: topic exceeds %d bytes", ErrInvalidTopic, maxTopicLength)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: topic contains NUL", ErrInvalidTopic)
	}
	return nil
}
