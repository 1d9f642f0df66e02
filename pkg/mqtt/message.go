package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType represents the type of message being sent.
type MessageType string

const (
	// MessageTypeStatus carries a device status snapshot
	MessageTypeStatus MessageType = "status"
	// MessageTypeEvent carries a device lifecycle event
	MessageTypeEvent MessageType = "event"
)

// Message is the envelope for all telemetry publications.
type Message struct {
	// ID is a unique identifier for this message
	ID string `json:"id"`
	// Type indicates the message type
	Type MessageType `json:"type"`
	// Source identifies the publishing device (e.g., "focuser:0")
	Source string `json:"source"`
	// Timestamp when the message was created
	Timestamp time.Time `json:"timestamp"`
	// Payload contains the message data as JSON
	Payload json.RawMessage `json:"payload"`
}

// NewMessage creates a message with the given parameters.
func NewMessage(msgType MessageType, source string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

// UnmarshalPayload deserializes the payload into the provided structure.
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
