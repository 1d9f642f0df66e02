package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTopics(t *testing.T) {
	assert.Equal(t, "observatory/device/focuser/0/status", DeviceStatusTopic(DeviceKindFocuser, 0))
	assert.Equal(t, "observatory/device/mount/3/status", DeviceStatusTopic(DeviceKindMount, 3))
	assert.Equal(t, "observatory/device/mount/0/event/connected", DeviceEventTopic(DeviceKindMount, 0, "connected"))
	assert.Equal(t, "observatory/device/focuser/+/status", DeviceStatusWildcard(DeviceKindFocuser))
}

func TestParseTopic(t *testing.T) {
	parts, err := ParseTopic("observatory/device/focuser/0/status")
	require.NoError(t, err)
	assert.Equal(t, []string{"device", "focuser", "0", "status"}, parts)

	_, err = ParseTopic("bigsky/device/focuser/0/status")
	assert.Error(t, err)
}

func TestValidateTopic(t *testing.T) {
	assert.True(t, ValidateTopic("observatory/device/focuser/0/status"))
	assert.False(t, ValidateTopic("observatory/device"))
	assert.False(t, ValidateTopic("other/device/focuser/0/status"))
}

func TestMessageRoundTrip(t *testing.T) {
	message, err := NewMessage(MessageTypeStatus, "focuser:0", map[string]int{"position": 12000})
	require.NoError(t, err)

	assert.NotEmpty(t, message.ID)
	assert.Equal(t, MessageTypeStatus, message.Type)
	assert.Equal(t, "focuser:0", message.Source)
	assert.False(t, message.Timestamp.IsZero())

	var payload map[string]int
	require.NoError(t, message.UnmarshalPayload(&payload))
	assert.Equal(t, 12000, payload["position"])
}
