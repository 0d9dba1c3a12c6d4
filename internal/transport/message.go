package transport

import (
	"encoding/json"
	"fmt"
)

// MessageType represents the type of control message sent over the channel
type MessageType string

const (
	// MsgReceiverConnected tells the sender that a receiver has joined.
	MsgReceiverConnected MessageType = "receiver_connected"
)

// ControlMessage is a structured text message that is not file metadata.
type ControlMessage struct {
	Type MessageType `json:"type"`
}

// SerializeControl converts a control message to bytes for transmission
func SerializeControl(msgType MessageType) ([]byte, error) {
	data, err := json.Marshal(ControlMessage{Type: msgType})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}
	return data, nil
}

// ParseControl decodes a text frame as a control message. Frames that are not
// JSON objects return an error; callers treat that as "not a control message".
func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("failed to deserialize message: %w", err)
	}
	return msg, nil
}
