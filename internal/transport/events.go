package transport

import "sync"

const defaultEventBuffer = 100

// eventQueue serializes inbound events for one channel end. Producers call
// emit; the stream ends with one EventClose followed by closing the Go
// channel, so consumers treat a closed channel the same as EventClose.
type eventQueue struct {
	ch       chan Event
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	closed bool
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// emit delivers ev unless the stream has ended. It blocks while the buffer is
// full and returns false if the queue is shut down meanwhile.
func (q *eventQueue) emit(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- ev:
		return true
	case <-q.done:
		return false
	}
}

// finish delivers EventClose (waiting for the consumer unless shut down) and
// ends the stream. Later calls are no-ops.
func (q *eventQueue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	select {
	case q.ch <- Event{Type: EventClose}:
	case <-q.done:
	}
	close(q.ch)
}

// shutdown stops waiting on the consumer and ends the stream.
func (q *eventQueue) shutdown() {
	q.doneOnce.Do(func() { close(q.done) })
	q.finish()
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
