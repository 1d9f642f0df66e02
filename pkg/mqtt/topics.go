package mqtt

import (
	"fmt"
	"strings"
)

// Topic naming conventions for the telemetry bus.
// Format: observatory/device/{kind}/{id}/{action}
const (
	// TopicPrefix is the root prefix for all telemetry topics
	TopicPrefix = "observatory"

	// SegmentDevice groups all per-device topics
	SegmentDevice = "device"

	// Device kinds
	DeviceKindFocuser = "focuser"
	DeviceKindMount   = "mount"

	// Actions
	ActionStatus = "status"
	ActionEvent  = "event"
)

// DeviceStatusTopic returns the status topic for one device.
func DeviceStatusTopic(kind string, id int) string {
	return strings.Join([]string{TopicPrefix, SegmentDevice, kind, fmt.Sprintf("%d", id), ActionStatus}, "/")
}

// DeviceEventTopic returns the event topic for one device.
func DeviceEventTopic(kind string, id int, event string) string {
	return strings.Join([]string{TopicPrefix, SegmentDevice, kind, fmt.Sprintf("%d", id), ActionEvent, event}, "/")
}

// DeviceStatusWildcard subscribes to status updates for every device of
// the given kind.
func DeviceStatusWildcard(kind string) string {
	return strings.Join([]string{TopicPrefix, SegmentDevice, kind, "+", ActionStatus}, "/")
}

// ParseTopic extracts the segments following the prefix from a topic.
func ParseTopic(topic string) ([]string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != TopicPrefix {
		return nil, fmt.Errorf("invalid topic format: must start with %s", TopicPrefix)
	}
	return parts[1:], nil
}

// ValidateTopic checks whether a topic follows the telemetry conventions.
func ValidateTopic(topic string) bool {
	parts := strings.Split(topic, "/")
	return len(parts) >= 4 && parts[0] == TopicPrefix && parts[1] == SegmentDevice
}
