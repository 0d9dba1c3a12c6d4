package transport

import "sync/atomic"

// DefaultPipeMessageSize is the message ceiling of an in-memory pipe.
const DefaultPipeMessageSize = 4 * 1024 * 1024

// PipeChannel is one end of an in-memory channel pair. Both ends start open.
type PipeChannel struct {
	queue   *eventQueue
	peer    *PipeChannel
	maxSize int
	open    atomic.Bool
}

// NewPipe returns two connected channel ends. Messages sent on one arrive, in
// order, on the other. Closing either end closes both.
func NewPipe(maxMessageSize int) (*PipeChannel, *PipeChannel) {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultPipeMessageSize
	}

	a := &PipeChannel{queue: newEventQueue(defaultEventBuffer), maxSize: maxMessageSize}
	b := &PipeChannel{queue: newEventQueue(defaultEventBuffer), maxSize: maxMessageSize}
	a.peer, b.peer = b, a
	a.open.Store(true)
	b.open.Store(true)

	a.queue.emit(Event{Type: EventOpen})
	b.queue.emit(Event{Type: EventOpen})
	return a, b
}

// Events returns the inbound event stream.
func (p *PipeChannel) Events() <-chan Event {
	return p.queue.ch
}

// SendText delivers a text message to the peer end.
func (p *PipeChannel) SendText(data []byte) error {
	return p.send(EventText, data)
}

// SendBinary delivers a binary message to the peer end.
func (p *PipeChannel) SendBinary(data []byte) error {
	return p.send(EventBinary, data)
}

func (p *PipeChannel) send(kind EventType, data []byte) error {
	if !p.IsOpen() {
		return ErrChannelClosed
	}

	// Copy so the caller may reuse its buffer.
	payload := make([]byte, len(data))
	copy(payload, data)

	if !p.peer.queue.emit(Event{Type: kind, Data: payload}) {
		return ErrChannelClosed
	}
	return nil
}

// IsOpen reports whether sends can currently succeed.
func (p *PipeChannel) IsOpen() bool {
	return p.open.Load()
}

// MaxMessageSize is the configured per-message ceiling.
func (p *PipeChannel) MaxMessageSize() int {
	return p.maxSize
}

// Close closes both ends. Messages already queued stay readable.
func (p *PipeChannel) Close() error {
	p.open.Store(false)
	p.peer.open.Store(false)
	p.queue.shutdown()
	p.peer.queue.shutdown()
	return nil
}
