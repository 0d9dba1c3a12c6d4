package transfer

import (
	"errors"

	"qrshare/internal/progress"
	"qrshare/pkg/types"
)

var (
	ErrPeerNotReady         = errors.New("receiver has not joined yet")
	ErrNotReady             = errors.New("file not ready or channel not open")
	ErrClosedBeforeMetadata = errors.New("connection closed before metadata received")
	ErrIncomplete           = errors.New("connection closed before the file was complete")
	ErrChannelClosed        = errors.New("connection closed")
	ErrAssembly             = errors.New("error assembling file")
	ErrIdleTimeout          = errors.New("no activity before idle timeout")
	ErrSourceRead           = errors.New("failed to read file chunk")
	ErrAlreadySent          = errors.New("file already sent in this session")
)

// Status is a human-readable account of an engine's progress. Terminal
// statuses are the last one an engine publishes.
type Status struct {
	State    string
	Message  string
	Terminal bool
	Progress *progress.Snapshot
}

// Artifact is the reassembled file.
type Artifact struct {
	Metadata types.FileMetadata
	Data     []byte
}

const updatesBuffer = 64

// statusFeed fans statuses out to one consumer without ever blocking the
// engine. Non-terminal statuses are dropped when the consumer lags; a
// terminal status evicts the oldest queued one if it must.
type statusFeed struct {
	ch chan Status
}

func newStatusFeed() *statusFeed {
	return &statusFeed{ch: make(chan Status, updatesBuffer)}
}

func (f *statusFeed) publish(st Status) {
	select {
	case f.ch <- st:
		return
	default:
	}
	if !st.Terminal {
		return
	}

	select {
	case <-f.ch:
	default:
	}
	select {
	case f.ch <- st:
	default:
	}
}

func (f *statusFeed) close() {
	close(f.ch)
}
