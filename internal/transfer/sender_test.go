package transfer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"qrshare/internal/transport"
	"qrshare/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForState blocks until the sender reaches state.
func waitForState(t *testing.T, s *Sender, state SenderState) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == state }, waitTimeout, time.Millisecond)
}

func TestSenderWaitsForReceiver(t *testing.T) {
	ch := newStubChannel(0)
	s, _ := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	waitForState(t, s, SenderWaitingPeer)

	err := s.Send(context.Background(), &memSource{name: "a.txt", mime: "text/plain", data: []byte("hello")})
	assert.ErrorIs(t, err, ErrPeerNotReady)
	assert.Equal(t, SenderWaitingPeer, s.State())

	texts, binary := ch.sent()
	assert.Empty(t, texts)
	assert.Empty(t, binary)

	stats := s.Stats()
	assert.True(t, stats.Connected)
	assert.False(t, stats.PeerReady)
}

func TestSenderStreamsFile(t *testing.T) {
	ch := newStubChannel(0)
	s, done := startSender(t, ch, SenderOptions{MaxChunkSize: 4})
	data := sequence(10)

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.announce(t)

	select {
	case <-s.PeerReady():
	case <-time.After(waitTimeout):
		require.FailNow(t, "receiver never announced")
	}

	err := s.Send(context.Background(), &memSource{name: "digits.bin", mime: "application/octet-stream", data: data})
	require.NoError(t, err)
	assert.Equal(t, SenderComplete, s.State())

	texts, binary := ch.sent()
	require.Len(t, texts, 1)
	meta, err := types.ParseFileMetadata(texts[0])
	require.NoError(t, err)
	assert.Equal(t, scenarioMetadata(), meta)

	require.Len(t, binary, 3)
	assert.Equal(t, []int{4, 4, 2}, []int{len(binary[0]), len(binary[1]), len(binary[2])})
	assert.Equal(t, data, bytes.Join(binary, nil))

	stats := s.Stats()
	assert.Equal(t, int64(10), stats.BytesSent)
	assert.Equal(t, int64(3), stats.ChunksSent)
	assert.Equal(t, "Sent file: digits.bin (3/3 chunks) (10/10)bytes", s.Status().Message)

	// A second send in the same session is refused without output.
	assert.ErrorIs(t, s.Send(context.Background(), &memSource{name: "b", mime: "a/b", data: data}), ErrAlreadySent)

	// Closing after completion is a clean exit.
	ch.emit(transport.Event{Type: transport.EventClose})
	assert.NoError(t, waitResult(t, done))
}

func TestSenderChunkBoundFollowsChannel(t *testing.T) {
	ch := newStubChannel(16)
	s, _ := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.announce(t)
	<-s.PeerReady()

	require.NoError(t, s.Send(context.Background(), &memSource{name: "f", mime: "a/b", data: sequence(40)}))

	texts, binary := ch.sent()
	meta, err := types.ParseFileMetadata(texts[0])
	require.NoError(t, err)
	assert.Equal(t, int64(16), meta.ChunkSize)
	assert.Equal(t, int64(3), meta.TotalChunks)
	assert.Len(t, binary, 3)
}

func TestSenderEmptyFile(t *testing.T) {
	ch := newStubChannel(0)
	s, _ := startSender(t, ch, SenderOptions{MaxChunkSize: 1024})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.announce(t)
	<-s.PeerReady()

	require.NoError(t, s.Send(context.Background(), &memSource{name: "empty", mime: "text/plain"}))

	texts, binary := ch.sent()
	require.Len(t, texts, 1)
	meta, err := types.ParseFileMetadata(texts[0])
	require.NoError(t, err)
	assert.Equal(t, int64(0), meta.Size)
	assert.Equal(t, int64(1024), meta.ChunkSize)
	assert.Equal(t, int64(0), meta.TotalChunks)
	assert.Empty(t, binary)
}

func TestSenderAbortsWhenChannelNotOpen(t *testing.T) {
	ch := newStubChannel(0)
	s, done := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.announce(t)
	<-s.PeerReady()
	ch.setOpen(false)

	err := s.Send(context.Background(), &memSource{name: "f", mime: "a/b", data: sequence(8)})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, waitResult(t, done), ErrNotReady)
	assert.Equal(t, SenderNotReady, s.State())
	assert.Equal(t, "File not ready or channel not open.", s.Status().Message)

	texts, binary := ch.sent()
	assert.Empty(t, texts)
	assert.Empty(t, binary)
}

func TestSenderReadFailure(t *testing.T) {
	ch := newStubChannel(0)
	s, done := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.announce(t)
	<-s.PeerReady()

	err := s.Send(context.Background(), &memSource{name: "f", mime: "a/b", data: sequence(8), readErr: errBoom})
	assert.ErrorIs(t, err, ErrSourceRead)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, waitResult(t, done), ErrSourceRead)
	assert.Equal(t, SenderFailed, s.State())
}

func TestSenderClosedBeforeComplete(t *testing.T) {
	ch := newStubChannel(0)
	s, done := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.emit(transport.Event{Type: transport.EventClose})

	assert.ErrorIs(t, waitResult(t, done), ErrChannelClosed)
	assert.Equal(t, SenderClosed, s.State())

	// Sends after Run returned report why it stopped.
	err := s.Send(context.Background(), &memSource{name: "f", mime: "a/b", data: sequence(4)})
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestSenderIdleTimeout(t *testing.T) {
	ch := newStubChannel(0)
	s, done := startSender(t, ch, SenderOptions{IdleTimeout: 50 * time.Millisecond})

	ch.emit(transport.Event{Type: transport.EventOpen})

	assert.ErrorIs(t, waitResult(t, done), ErrIdleTimeout)
	assert.Equal(t, SenderTimedOut, s.State())
}

func TestSenderIgnoresUnknownText(t *testing.T) {
	ch := newStubChannel(0)
	s, _ := startSender(t, ch, SenderOptions{})

	ch.emit(transport.Event{Type: transport.EventOpen})
	ch.emit(transport.Event{Type: transport.EventText, Data: []byte("garbage")})
	ch.emit(transport.Event{Type: transport.EventText, Data: []byte(`{"type":"something_else"}`)})
	ch.emit(transport.Event{Type: transport.EventBinary, Data: []byte{1, 2, 3}})
	waitForState(t, s, SenderWaitingPeer)

	select {
	case <-s.PeerReady():
		require.FailNow(t, "peer must not be ready")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSenderCancelled(t *testing.T) {
	ch := newStubChannel(0)
	s := NewSender(scenarioDescriptor(), ch, SenderOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)

	statuses := drain(t, s.Updates())
	require.NotEmpty(t, statuses)
	assert.True(t, statuses[len(statuses)-1].Terminal)
}
