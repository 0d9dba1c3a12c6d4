package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
)

// SCTPMessageSize is the largest data channel message that every WebRTC
// implementation accepts without fragmentation trouble.
const SCTPMessageSize = 64 * 1024

// DataChannelLabel names the single data channel of a transfer.
const DataChannelLabel = "qrshare"

const flowControlTimeout = 30 * time.Second

// FlowControl configures data channel back-pressure.
type FlowControl struct {
	BufferedAmountLowThreshold uint64
	MaxBufferedAmount          uint64
}

// WebRTCChannel adapts a pion data channel to Channel. The receiving side
// constructs it before the remote data channel arrives and attaches later.
type WebRTCChannel struct {
	flow  FlowControl
	queue *eventQueue

	mu sync.Mutex
	dc *webrtc.DataChannel

	open      atomic.Bool
	bufferLow chan struct{}
	closeOnce sync.Once
}

// NewWebRTCChannel creates an unattached channel.
func NewWebRTCChannel(flow FlowControl) *WebRTCChannel {
	return &WebRTCChannel{
		flow:      flow,
		queue:     newEventQueue(defaultEventBuffer),
		bufferLow: make(chan struct{}, 1),
	}
}

// CreateDataChannel opens an ordered data channel on the offering side.
func (c *WebRTCChannel) CreateDataChannel(peerConn *webrtc.PeerConnection) error {
	ordered := true
	options := &webrtc.DataChannelInit{
		Ordered: &ordered,
	}

	dataChannel, err := peerConn.CreateDataChannel(DataChannelLabel, options)
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}

	c.attach(dataChannel)
	return nil
}

// AcceptDataChannel attaches the first data channel the remote peer opens.
func (c *WebRTCChannel) AcceptDataChannel(peerConn *webrtc.PeerConnection) {
	peerConn.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		c.mu.Lock()
		attached := c.dc != nil
		c.mu.Unlock()
		if attached {
			logrus.WithFields(logrus.Fields{
				"function": "AcceptDataChannel",
				"label":    dataChannel.Label(),
			}).Warn("Ignoring extra data channel")
			return
		}

		logrus.WithFields(logrus.Fields{
			"function": "AcceptDataChannel",
			"label":    dataChannel.Label(),
		}).Info("Received data channel")
		c.attach(dataChannel)
	})
}

func (c *WebRTCChannel) attach(dataChannel *webrtc.DataChannel) {
	c.mu.Lock()
	c.dc = dataChannel
	c.mu.Unlock()

	dataChannel.OnOpen(func() {
		logrus.WithFields(logrus.Fields{
			"function": "OnOpen",
			"label":    dataChannel.Label(),
		}).Info("Data channel opened")
		c.open.Store(true)
		c.queue.emit(Event{Type: EventOpen})
	})

	dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			c.queue.emit(Event{Type: EventText, Data: msg.Data})
			return
		}
		c.queue.emit(Event{Type: EventBinary, Data: msg.Data})
	})

	dataChannel.OnError(func(err error) {
		logrus.WithFields(logrus.Fields{
			"function": "OnError",
			"error":    err.Error(),
		}).Warn("Data channel error")
		c.queue.emit(Event{Type: EventError, Err: err})
	})

	dataChannel.OnClose(func() {
		logrus.WithField("function", "OnClose").Info("Data channel closed")
		c.open.Store(false)
		c.queue.finish()
	})

	dataChannel.SetBufferedAmountLowThreshold(c.flow.BufferedAmountLowThreshold)
	dataChannel.OnBufferedAmountLow(func() {
		select {
		case c.bufferLow <- struct{}{}:
		default:
		}
	})
}

// Fail ends the stream with an error, e.g. when the peer connection dies.
func (c *WebRTCChannel) Fail(err error) {
	c.open.Store(false)
	c.queue.emit(Event{Type: EventError, Err: err})
	c.queue.finish()
}

// Events returns the inbound event stream.
func (c *WebRTCChannel) Events() <-chan Event {
	return c.queue.ch
}

// SendText sends a string message.
func (c *WebRTCChannel) SendText(data []byte) error {
	dc, err := c.ready()
	if err != nil {
		return err
	}
	if err := c.waitForBuffer(dc); err != nil {
		return err
	}
	if err := dc.SendText(string(data)); err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	return nil
}

// SendBinary sends a binary message, waiting for the send buffer to drain
// below the configured ceiling first.
func (c *WebRTCChannel) SendBinary(data []byte) error {
	dc, err := c.ready()
	if err != nil {
		return err
	}
	if err := c.waitForBuffer(dc); err != nil {
		return err
	}
	if err := dc.Send(data); err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	return nil
}

func (c *WebRTCChannel) ready() (*webrtc.DataChannel, error) {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()

	if dc == nil || !c.IsOpen() {
		return nil, ErrChannelClosed
	}
	return dc, nil
}

func (c *WebRTCChannel) waitForBuffer(dc *webrtc.DataChannel) error {
	if c.flow.MaxBufferedAmount == 0 || dc.BufferedAmount() <= c.flow.MaxBufferedAmount {
		return nil
	}

	select {
	case <-c.bufferLow:
		return nil
	case <-c.queue.done:
		return ErrChannelClosed
	case <-time.After(flowControlTimeout):
		return fmt.Errorf("flow control timeout - WebRTC channel may be dead")
	}
}

// IsOpen reports whether the data channel is open.
func (c *WebRTCChannel) IsOpen() bool {
	return c.open.Load()
}

// MaxMessageSize returns SCTPMessageSize.
func (c *WebRTCChannel) MaxMessageSize() int {
	return SCTPMessageSize
}

// Close gracefully closes the data channel.
func (c *WebRTCChannel) Close() error {
	c.closeOnce.Do(func() {
		c.open.Store(false)

		c.mu.Lock()
		dc := c.dc
		c.mu.Unlock()

		if dc != nil && dc.ReadyState() == webrtc.DataChannelStateOpen {
			if err := dc.GracefulClose(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Close",
					"error":    err.Error(),
				}).Warn("Error during graceful close")
			}
		}

		c.queue.shutdown()
	})
	return nil
}
