package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"qrshare/internal/progress"
	"qrshare/internal/session"
	"qrshare/internal/transport"
	"qrshare/pkg/types"

	"github.com/sirupsen/logrus"
)

// DefaultMaxChunkSize caps a chunk when the channel allows more.
const DefaultMaxChunkSize int64 = 3 * 1024 * 1024

// Source is a file the sender can stream.
type Source interface {
	Name() string
	Size() int64
	MimeType() string
	ReadAt(p []byte, off int64) (int, error)
}

// SenderOptions tunes a Sender. Zero values select defaults.
type SenderOptions struct {
	MaxChunkSize int64
	// IdleTimeout ends a sender that sees no channel activity before the
	// receiver joins. Zero disables it.
	IdleTimeout time.Duration
	Clock       progress.Clock
}

// SenderStats counts what the sender has done so far.
type SenderStats struct {
	Connected  bool
	PeerReady  bool
	BytesSent  int64
	ChunksSent int64
}

type sendRequest struct {
	ctx    context.Context
	source Source
	result chan error
}

// Sender drives the sending side of one transfer attempt over a channel.
type Sender struct {
	desc    session.Descriptor
	channel transport.Channel
	opts    SenderOptions

	requests  chan sendRequest
	peerReady chan struct{}
	peerOnce  sync.Once
	done      chan struct{}
	feed      *statusFeed

	mu     sync.RWMutex
	state  SenderState
	stats  SenderStats
	status Status
	err    error
}

// NewSender creates a sender for desc over channel. Call Run to start it.
func NewSender(desc session.Descriptor, channel transport.Channel, opts SenderOptions) *Sender {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.Clock == nil {
		opts.Clock = progress.SystemClock{}
	}

	return &Sender{
		desc:      desc,
		channel:   channel,
		opts:      opts,
		requests:  make(chan sendRequest),
		peerReady: make(chan struct{}),
		done:      make(chan struct{}),
		feed:      newStatusFeed(),
		state:     SenderIdle,
	}
}

// Updates streams status changes. It is closed when Run returns.
func (s *Sender) Updates() <-chan Status {
	return s.feed.ch
}

// PeerReady is closed once the receiver has joined.
func (s *Sender) PeerReady() <-chan struct{} {
	return s.peerReady
}

// Done is closed when Run returns.
func (s *Sender) Done() <-chan struct{} {
	return s.done
}

// State returns the current state.
func (s *Sender) State() SenderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a copy of the counters.
func (s *Sender) Stats() SenderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Status returns the most recent status.
func (s *Sender) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Send asks the running sender to stream source. It returns once the last
// chunk has been handed to the channel or the attempt fails.
func (s *Sender) Send(ctx context.Context, source Source) error {
	req := sendRequest{ctx: ctx, source: source, result: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.exitErr()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-req.result:
			return err
		default:
		}
		return s.exitErr()
	}
}

func (s *Sender) exitErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return s.err
	}
	return ErrChannelClosed
}

// Run processes channel events until the channel closes, ctx is cancelled, or
// the attempt fails. It returns nil when the channel closes after a complete
// transfer.
func (s *Sender) Run(ctx context.Context) (err error) {
	defer func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		s.feed.close()
	}()

	logger := logrus.WithFields(logrus.Fields{
		"function":   "Sender.Run",
		"session_id": s.desc.ID,
	})
	logger.Debug("Sender started")

	idle := newIdleTimer(s.opts.IdleTimeout)
	defer idle.stop()

	events := s.channel.Events()
	for {
		select {
		case <-ctx.Done():
			s.finish(s.State(), "Transfer cancelled.")
			return ctx.Err()

		case <-idle.C():
			s.setState(SenderTimedOut)
			s.publish("Timed out waiting for the receiver.", true, nil)
			logger.Warn("Sender idle timeout")
			return ErrIdleTimeout

		case ev, ok := <-events:
			if !ok {
				return s.handleClose(nil)
			}
			idle.reset()

			switch ev.Type {
			case transport.EventOpen:
				s.handleOpen()
			case transport.EventText:
				s.handleText(ev.Data)
			case transport.EventBinary:
				logger.WithField("bytes", len(ev.Data)).Debug("Ignoring binary message")
			case transport.EventError:
				return s.handleClose(ev.Err)
			case transport.EventClose:
				return s.handleClose(nil)
			}

		case req := <-s.requests:
			err := s.transfer(ctx, req.ctx, req.source)
			req.result <- err
			if err == nil {
				// Only keep watching for the peer to hang up.
				idle.stop()
				continue
			}
			if errors.Is(err, ErrPeerNotReady) || errors.Is(err, ErrAlreadySent) {
				continue
			}
			return err
		}
	}
}

func (s *Sender) handleOpen() {
	s.mu.Lock()
	s.stats.Connected = true
	s.mu.Unlock()

	s.setState(SenderWaitingPeer)
	s.publish("Connected. Waiting for receiver to join...", false, nil)
}

func (s *Sender) handleText(data []byte) {
	msg, err := transport.ParseControl(data)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "handleText",
			"session_id": s.desc.ID,
			"error":      err.Error(),
		}).Warn("Ignoring malformed text message")
		return
	}

	switch msg.Type {
	case transport.MsgReceiverConnected:
		s.mu.Lock()
		already := s.stats.PeerReady
		s.stats.PeerReady = true
		s.mu.Unlock()
		if already {
			return
		}

		s.peerOnce.Do(func() { close(s.peerReady) })
		s.publish("Receiver connected. Select a file to send.", false, nil)
		logrus.WithFields(logrus.Fields{
			"function":   "handleText",
			"session_id": s.desc.ID,
		}).Info("Receiver connected")
	default:
		logrus.WithFields(logrus.Fields{
			"function":   "handleText",
			"session_id": s.desc.ID,
			"type":       msg.Type,
		}).Debug("Ignoring unknown control message")
	}
}

func (s *Sender) handleClose(cause error) error {
	state := s.State()
	if state == SenderComplete {
		logrus.WithFields(logrus.Fields{
			"function":   "handleClose",
			"session_id": s.desc.ID,
		}).Info("Channel closed after transfer")
		return nil
	}

	s.setState(SenderClosed)
	s.publish("Connection closed.", true, nil)
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrChannelClosed, cause)
	}
	return ErrChannelClosed
}

// transfer runs inside Run, so no event is handled while chunks are sent.
func (s *Sender) transfer(runCtx, ctx context.Context, source Source) error {
	switch s.State() {
	case SenderComplete, SenderTransferring:
		return ErrAlreadySent
	}

	if !s.channel.IsOpen() {
		return s.notReady(nil)
	}

	s.mu.RLock()
	peerReady := s.stats.PeerReady
	s.mu.RUnlock()
	if !peerReady {
		s.publish("Receiver has not joined yet.", false, nil)
		return ErrPeerNotReady
	}

	bound := s.opts.MaxChunkSize
	if limit := int64(s.channel.MaxMessageSize()); limit > 0 && limit < bound {
		bound = limit
	}

	meta, err := types.PlanChunks(source.Name(), source.MimeType(), source.Size(), bound)
	if err != nil {
		s.setState(SenderFailed)
		s.publish("Failed to read file chunk.", true, nil)
		return fmt.Errorf("%w: %w", ErrSourceRead, err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"function":     "transfer",
		"session_id":   s.desc.ID,
		"filename":     meta.Filename,
		"size":         meta.Size,
		"chunk_size":   meta.ChunkSize,
		"total_chunks": meta.TotalChunks,
	})

	encoded, err := meta.Encode()
	if err != nil {
		return s.notReady(err)
	}
	if err := s.channel.SendText(encoded); err != nil {
		return s.notReady(err)
	}
	s.setState(SenderTransferring)
	logger.Info("Metadata sent")

	estimator := progress.NewEstimator(s.opts.Clock)
	estimator.Observe(0, meta.Size)

	buf := make([]byte, meta.ChunkSize)
	var offset int64
	for offset < meta.Size {
		err := runCtx.Err()
		if ctxErr := ctx.Err(); err == nil {
			err = ctxErr
		}
		if err != nil {
			s.setState(SenderClosed)
			s.publish("Transfer cancelled.", true, nil)
			return err
		}

		n := min(meta.ChunkSize, meta.Size-offset)
		chunk := buf[:n]
		read, err := source.ReadAt(chunk, offset)
		if int64(read) != n || (err != nil && !errors.Is(err, io.EOF)) {
			s.setState(SenderFailed)
			s.publish("Failed to read file chunk.", true, nil)
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("%w at offset %d: %w", ErrSourceRead, offset, err)
		}

		if !s.channel.IsOpen() {
			return s.notReady(nil)
		}
		if err := s.channel.SendBinary(chunk); err != nil {
			return s.notReady(err)
		}

		offset += n
		s.mu.Lock()
		s.stats.BytesSent = offset
		s.stats.ChunksSent++
		sent := s.stats.ChunksSent
		s.mu.Unlock()

		snap := estimator.Observe(offset, meta.Size)
		s.publish(fmt.Sprintf("Sending chunk %d...", sent), false, &snap)
		logger.WithField("chunk", sent).Debug("Chunk sent")
	}

	stats := s.Stats()
	snap := estimator.Observe(meta.Size, meta.Size)
	s.setState(SenderComplete)
	s.publish(fmt.Sprintf("Sent file: %s (%d/%d chunks) (%d/%d)bytes",
		meta.Filename, stats.ChunksSent, meta.TotalChunks, stats.BytesSent, meta.Size), true, &snap)
	logger.Info("File sent")
	return nil
}

func (s *Sender) notReady(cause error) error {
	s.setState(SenderNotReady)
	s.publish("File not ready or channel not open.", true, nil)
	logrus.WithFields(logrus.Fields{
		"function":   "notReady",
		"session_id": s.desc.ID,
		"cause":      fmt.Sprint(cause),
	}).Error("Transfer aborted")
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, cause)
	}
	return ErrNotReady
}

func (s *Sender) finish(state SenderState, message string) {
	s.setState(state)
	s.publish(message, true, nil)
}

func (s *Sender) publish(message string, terminal bool, snap *progress.Snapshot) {
	st := Status{
		State:    s.State().String(),
		Message:  message,
		Terminal: terminal,
		Progress: snap,
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.feed.publish(st)
}

// setState updates the transfer state (thread-safe)
func (s *Sender) setState(state SenderState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != state {
		logrus.WithFields(logrus.Fields{
			"function":   "setState",
			"session_id": s.desc.ID,
			"from":       s.state.String(),
			"to":         state.String(),
		}).Info("Sender state changed")
		s.state = state
	}
}
