package transfer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"qrshare/internal/session"
	"qrshare/internal/transport"
	"qrshare/pkg/types"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

// memSource is an in-memory Source.
type memSource struct {
	name    string
	mime    string
	data    []byte
	readErr error
}

func (m *memSource) Name() string     { return m.name }
func (m *memSource) Size() int64      { return int64(len(m.data)) }
func (m *memSource) MimeType() string { return m.mime }

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	return bytes.NewReader(m.data).ReadAt(p, off)
}

// stubChannel is a Channel whose openness and inbound events the test drives.
type stubChannel struct {
	events  chan transport.Event
	maxSize int

	mu     sync.Mutex
	open   bool
	texts  [][]byte
	binary [][]byte

	closeOnce sync.Once
}

func newStubChannel(maxSize int) *stubChannel {
	return &stubChannel{
		events:  make(chan transport.Event, 16),
		maxSize: maxSize,
		open:    true,
	}
}

func (c *stubChannel) Events() <-chan transport.Event { return c.events }

func (c *stubChannel) SendText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return transport.ErrChannelClosed
	}
	c.texts = append(c.texts, append([]byte(nil), data...))
	return nil
}

func (c *stubChannel) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return transport.ErrChannelClosed
	}
	c.binary = append(c.binary, append([]byte(nil), data...))
	return nil
}

func (c *stubChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *stubChannel) setOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
}

func (c *stubChannel) MaxMessageSize() int { return c.maxSize }

func (c *stubChannel) Close() error { return nil }

func (c *stubChannel) sent() (texts, binary [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.texts...), append([][]byte(nil), c.binary...)
}

func (c *stubChannel) emit(ev transport.Event) {
	c.events <- ev
}

// hangUp ends the event stream the way a transport does after its close.
func (c *stubChannel) hangUp() {
	c.closeOnce.Do(func() { close(c.events) })
}

func (c *stubChannel) announce(t *testing.T) {
	t.Helper()
	msg, err := transport.SerializeControl(transport.MsgReceiverConnected)
	require.NoError(t, err)
	c.emit(transport.Event{Type: transport.EventText, Data: msg})
}

func sequence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func sendMetadata(t *testing.T, ch transport.Channel, meta types.FileMetadata) {
	t.Helper()
	data, err := meta.Encode()
	require.NoError(t, err)
	require.NoError(t, ch.SendText(data))
}

// sendChunks writes data to ch split at the given lengths.
func sendChunks(t *testing.T, ch transport.Channel, data []byte, lengths ...int) {
	t.Helper()
	off := 0
	for _, n := range lengths {
		end := min(off+n, len(data))
		chunk := append([]byte(nil), data[off:end]...)
		// Pad past the end of data to simulate over-delivery.
		for len(chunk) < n {
			chunk = append(chunk, 0xFF)
		}
		require.NoError(t, ch.SendBinary(chunk))
		off = end
	}
}

type runResult struct {
	err error
}

// startReceiver runs a receiver on one end of a pipe and returns the other end.
func startReceiver(t *testing.T, opts ReceiverOptions) (*Receiver, *transport.PipeChannel, <-chan runResult) {
	t.Helper()
	local, remote := transport.NewPipe(0)
	t.Cleanup(func() { _ = local.Close() })

	r := NewReceiver(session.New().ForReceiver(), local, opts)
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: r.Run(context.Background())}
	}()
	return r, remote, done
}

func startSender(t *testing.T, ch transport.Channel, opts SenderOptions) (*Sender, <-chan runResult) {
	t.Helper()
	s := NewSender(session.New(), ch, opts)
	if stub, ok := ch.(*stubChannel); ok {
		t.Cleanup(stub.hangUp)
	}
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: s.Run(context.Background())}
	}()
	return s, done
}

func waitResult(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case res := <-done:
		return res.err
	case <-time.After(waitTimeout):
		require.FailNow(t, "engine did not stop")
		return nil
	}
}

// drain collects every status until the feed closes.
func drain(t *testing.T, updates <-chan Status) []Status {
	t.Helper()
	var out []Status
	deadline := time.After(waitTimeout)
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return out
			}
			out = append(out, st)
		case <-deadline:
			require.FailNow(t, "updates were not closed")
			return out
		}
	}
}

func states(statuses []Status) []string {
	var out []string
	for _, st := range statuses {
		if len(out) == 0 || out[len(out)-1] != st.State {
			out = append(out, st.State)
		}
	}
	return out
}

// nextData returns the next text or binary event on ch, skipping lifecycle events.
func nextData(t *testing.T, ch transport.Channel) transport.Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-ch.Events():
			require.True(t, ok, "channel closed")
			if ev.Type == transport.EventText || ev.Type == transport.EventBinary {
				return ev
			}
		case <-deadline:
			require.FailNow(t, "no data event")
		}
	}
}

var errBoom = errors.New("boom")

func scenarioDescriptor() session.Descriptor {
	return session.New().ForReceiver()
}
