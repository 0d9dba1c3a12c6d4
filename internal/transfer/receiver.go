package transfer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"qrshare/internal/progress"
	"qrshare/internal/session"
	"qrshare/internal/transport"
	"qrshare/pkg/types"

	"github.com/sirupsen/logrus"
)

// ReceiverOptions tunes a Receiver.
type ReceiverOptions struct {
	// Announce sends receiver_connected when the channel opens, for
	// transports without a relay that does it on the receiver's behalf.
	Announce bool
	// IdleTimeout ends a receiver that sees no channel activity before the
	// file is complete. Zero disables it.
	IdleTimeout time.Duration
	Clock       progress.Clock
}

// Receiver drives the receiving side of one transfer attempt over a channel.
type Receiver struct {
	desc    session.Descriptor
	channel transport.Channel
	opts    ReceiverOptions

	buffer    receiveBuffer
	estimator *progress.Estimator
	feed      *statusFeed

	mu       sync.RWMutex
	state    ReceiverState
	metadata *types.FileMetadata
	last     *progress.Snapshot
	artifact *Artifact
	status   Status
}

// NewReceiver creates a receiver for desc over channel. Call Run to start it.
func NewReceiver(desc session.Descriptor, channel transport.Channel, opts ReceiverOptions) *Receiver {
	if opts.Clock == nil {
		opts.Clock = progress.SystemClock{}
	}

	return &Receiver{
		desc:      desc,
		channel:   channel,
		opts:      opts,
		estimator: progress.NewEstimator(opts.Clock),
		feed:      newStatusFeed(),
		state:     ReceiverIdle,
	}
}

// Updates streams status changes. It is closed when Run returns.
func (r *Receiver) Updates() <-chan Status {
	return r.feed.ch
}

// State returns the current state.
func (r *Receiver) State() ReceiverState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Status returns the most recent status.
func (r *Receiver) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Metadata returns the declared file description once it has arrived.
func (r *Receiver) Metadata() (types.FileMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.metadata == nil {
		return types.FileMetadata{}, false
	}
	return *r.metadata, true
}

// Progress returns the last progress snapshot, if any.
func (r *Receiver) Progress() (progress.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return progress.Snapshot{}, false
	}
	return *r.last, true
}

// Artifact returns the assembled file after a complete transfer.
func (r *Receiver) Artifact() (Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.artifact == nil {
		return Artifact{}, false
	}
	return *r.artifact, true
}

// Run processes channel events until the file is assembled, the channel
// closes, ctx is cancelled, or the idle timeout fires. It returns nil only
// after a complete transfer.
func (r *Receiver) Run(ctx context.Context) error {
	defer r.feed.close()

	logger := logrus.WithFields(logrus.Fields{
		"function":   "Receiver.Run",
		"session_id": r.desc.ID,
	})
	logger.Debug("Receiver started")

	idle := newIdleTimer(r.opts.IdleTimeout)
	defer idle.stop()

	events := r.channel.Events()
	for {
		select {
		case <-ctx.Done():
			r.publish("Transfer cancelled.", true)
			return ctx.Err()

		case <-idle.C():
			r.setState(ReceiverTimedOut)
			r.publish("Timed out waiting for data.", true)
			logger.Warn("Receiver idle timeout")
			return ErrIdleTimeout

		case ev, ok := <-events:
			if !ok {
				return r.handleClose(nil)
			}
			idle.reset()

			var done bool
			var err error
			switch ev.Type {
			case transport.EventOpen:
				r.handleOpen()
			case transport.EventText:
				done, err = r.handleText(ev.Data)
			case transport.EventBinary:
				done, err = r.handleBinary(ev.Data)
			case transport.EventError:
				return r.handleClose(ev.Err)
			case transport.EventClose:
				return r.handleClose(nil)
			}
			if done || err != nil {
				return err
			}
		}
	}
}

func (r *Receiver) handleOpen() {
	r.setState(ReceiverAwaitingMetadata)
	r.publish("Connected. Waiting for file...", false)

	if !r.opts.Announce {
		return
	}
	msg, err := transport.SerializeControl(transport.MsgReceiverConnected)
	if err == nil {
		err = r.channel.SendText(msg)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "handleOpen",
			"session_id": r.desc.ID,
			"error":      err.Error(),
		}).Warn("Failed to announce receiver")
	}
}

func (r *Receiver) handleText(data []byte) (bool, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":   "handleText",
		"session_id": r.desc.ID,
	})

	if _, ok := r.Metadata(); ok {
		logger.Debug("Ignoring text message after metadata")
		return false, nil
	}

	meta, err := types.ParseFileMetadata(data)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Ignoring invalid metadata")
		return false, nil
	}

	r.mu.Lock()
	r.metadata = &meta
	r.mu.Unlock()

	r.setState(ReceiverReceiving)
	r.publish(fmt.Sprintf("Receiving %s...", meta.Filename), false)
	logger.WithFields(logrus.Fields{
		"filename":     meta.Filename,
		"size":         meta.Size,
		"type":         meta.MimeType,
		"total_chunks": meta.TotalChunks,
	}).Info("Metadata received")

	// An empty file is complete as soon as it is described.
	return r.checkComplete(meta)
}

func (r *Receiver) handleBinary(data []byte) (bool, error) {
	meta, ok := r.Metadata()
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "handleBinary",
			"session_id": r.desc.ID,
			"bytes":      len(data),
		}).Warn("Dropping chunk received before metadata")
		return false, nil
	}

	r.buffer.append(data)
	logrus.WithFields(logrus.Fields{
		"function":   "handleBinary",
		"session_id": r.desc.ID,
		"chunk":      r.buffer.count(),
		"received":   r.buffer.received(),
	}).Debug("Chunk received")

	return r.checkComplete(meta)
}

// checkComplete assembles the file once enough bytes have arrived and
// otherwise reports progress.
func (r *Receiver) checkComplete(meta types.FileMetadata) (bool, error) {
	received := r.buffer.received()
	snap := r.estimator.Observe(min(received, meta.Size), meta.Size)

	r.mu.Lock()
	r.last = &snap
	r.mu.Unlock()

	if received < meta.Size {
		r.publish(fmt.Sprintf("File received is not complete yet. at %s%% bytes.", formatPercent(snap.Percent)), false)
		return false, nil
	}

	data, err := r.buffer.assemble(meta.Size)
	if err != nil {
		r.setState(ReceiverError)
		r.publish("Error assembling file.", true)
		logrus.WithFields(logrus.Fields{
			"function":   "checkComplete",
			"session_id": r.desc.ID,
			"error":      err.Error(),
		}).Error("Assembly failed")
		return true, err
	}
	r.buffer.reset()

	r.mu.Lock()
	r.artifact = &Artifact{Metadata: meta, Data: data}
	r.mu.Unlock()

	r.setState(ReceiverComplete)
	r.publish("File ready to download.", true)
	logrus.WithFields(logrus.Fields{
		"function":   "checkComplete",
		"session_id": r.desc.ID,
		"filename":   meta.Filename,
		"size":       meta.Size,
	}).Info("File assembled")
	return true, nil
}

func (r *Receiver) handleClose(cause error) error {
	logger := logrus.WithFields(logrus.Fields{
		"function":   "handleClose",
		"session_id": r.desc.ID,
	})

	if _, ok := r.Metadata(); !ok {
		r.setState(ReceiverClosedBeforeMetadata)
		r.publish("Connection closed before metadata received.", true)
		logger.Warn("Channel closed before metadata")
		if cause != nil {
			return fmt.Errorf("%w: %w", ErrClosedBeforeMetadata, cause)
		}
		return ErrClosedBeforeMetadata
	}

	r.setState(ReceiverClosedIncomplete)
	percent := 0.0
	if snap, ok := r.Progress(); ok {
		percent = snap.Percent
	}
	r.publish(fmt.Sprintf("Connection closed. File received is not complete yet. at %s%% bytes.", formatPercent(percent)), true)
	logger.WithField("received", r.buffer.received()).Warn("Channel closed mid-transfer")
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, cause)
	}
	return ErrIncomplete
}

func (r *Receiver) publish(message string, terminal bool) {
	r.mu.Lock()
	st := Status{
		State:    r.state.String(),
		Message:  message,
		Terminal: terminal,
		Progress: r.last,
	}
	r.status = st
	r.mu.Unlock()
	r.feed.publish(st)
}

// setState updates the transfer state (thread-safe)
func (r *Receiver) setState(state ReceiverState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != state {
		logrus.WithFields(logrus.Fields{
			"function":   "setState",
			"session_id": r.desc.ID,
			"from":       r.state.String(),
			"to":         state.String(),
		}).Info("Receiver state changed")
		r.state = state
	}
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
