package transport

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned by sends on a channel that is no longer open.
var ErrChannelClosed = errors.New("channel is closed")

// EventType classifies what happened on a channel.
type EventType int

const (
	EventOpen EventType = iota
	EventText
	EventBinary
	EventClose
	EventError
)

// String returns the string representation of EventType
func (e EventType) String() string {
	switch e {
	case EventOpen:
		return "Open"
	case EventText:
		return "Text"
	case EventBinary:
		return "Binary"
	case EventClose:
		return "Close"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one lifecycle change or inbound message.
type Event struct {
	Type EventType
	Data []byte // payload for EventText and EventBinary
	Err  error  // cause for EventError
}

func (e Event) String() string {
	switch e.Type {
	case EventText, EventBinary:
		return fmt.Sprintf("%s(%d bytes)", e.Type, len(e.Data))
	case EventError:
		return fmt.Sprintf("%s(%v)", e.Type, e.Err)
	default:
		return e.Type.String()
	}
}

// Channel is an ordered, reliable, full-duplex message channel to exactly one
// peer. Text and binary messages are distinct kinds.
//
// Events are delivered in order; EventOpen comes first and EventClose is the
// last event, after which the Go channel is closed. A local Close may drop
// the final EventClose, so consumers treat a closed events channel as one.
type Channel interface {
	// Events returns the inbound event stream.
	Events() <-chan Event
	// SendText sends a structured (JSON) message.
	SendText(data []byte) error
	// SendBinary sends a raw binary message.
	SendBinary(data []byte) error
	// IsOpen reports whether sends can currently succeed.
	IsOpen() bool
	// MaxMessageSize is the practical per-message ceiling of the transport.
	MaxMessageSize() int
	// Close releases the channel. It is safe to call more than once.
	Close() error
}
