package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultWebSocketMessageSize bounds a single frame read from the relay.
// It leaves headroom above the default 3 MiB chunk bound.
const DefaultWebSocketMessageSize = 4 * 1024 * 1024

const closeWriteTimeout = time.Second

// WebSocketChannel carries the protocol over one websocket connection to a
// relay that forwards frames to the opposite-role peer of the same session.
type WebSocketChannel struct {
	conn    *websocket.Conn
	queue   *eventQueue
	maxSize int
	url     string

	writeMu   sync.Mutex
	open      atomic.Bool
	closeOnce sync.Once
}

// DialWebSocket connects to a session URL such as
// "ws://relay:8080/?id=<ID>&role=receiver". maxMessageSize <= 0 selects
// DefaultWebSocketMessageSize.
func DialWebSocket(ctx context.Context, url string, maxMessageSize int) (*WebSocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	return NewWebSocketChannel(conn, url, maxMessageSize), nil
}

// NewWebSocketChannel wraps an established connection and starts its reader.
func NewWebSocketChannel(conn *websocket.Conn, url string, maxMessageSize int) *WebSocketChannel {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultWebSocketMessageSize
	}
	conn.SetReadLimit(int64(maxMessageSize))

	c := &WebSocketChannel{
		conn:    conn,
		queue:   newEventQueue(defaultEventBuffer),
		maxSize: maxMessageSize,
		url:     url,
	}
	c.open.Store(true)
	c.queue.emit(Event{Type: EventOpen})

	logrus.WithFields(logrus.Fields{
		"function": "NewWebSocketChannel",
		"url":      url,
	}).Info("WebSocket channel opened")

	go c.readLoop()
	return c
}

// readLoop is the single producer of inbound events.
func (c *WebSocketChannel) readLoop() {
	defer c.queue.finish()
	defer c.open.Store(false)

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		switch msgType {
		case websocket.TextMessage:
			c.queue.emit(Event{Type: EventText, Data: data})
		case websocket.BinaryMessage:
			c.queue.emit(Event{Type: EventBinary, Data: data})
		}
	}
}

func (c *WebSocketChannel) handleReadError(err error) {
	fields := logrus.Fields{
		"function": "readLoop",
		"url":      c.url,
	}

	if !c.open.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logrus.WithFields(fields).Info("WebSocket channel closed")
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		fields["code"] = closeErr.Code
	}
	fields["error"] = err.Error()
	logrus.WithFields(fields).Warn("WebSocket channel failed")
	c.queue.emit(Event{Type: EventError, Err: err})
}

// Events returns the inbound event stream.
func (c *WebSocketChannel) Events() <-chan Event {
	return c.queue.ch
}

// SendText writes a text frame.
func (c *WebSocketChannel) SendText(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// SendBinary writes a binary frame.
func (c *WebSocketChannel) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

func (c *WebSocketChannel) write(msgType int, data []byte) error {
	if !c.IsOpen() {
		return ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(msgType, data); err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	return nil
}

// IsOpen reports whether sends can currently succeed.
func (c *WebSocketChannel) IsOpen() bool {
	return c.open.Load()
}

// MaxMessageSize is the frame ceiling configured for this connection.
func (c *WebSocketChannel) MaxMessageSize() int {
	return c.maxSize
}

// Close sends a normal close frame and tears the connection down.
func (c *WebSocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		wasOpen := c.open.Swap(false)

		if wasOpen {
			c.writeMu.Lock()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); werr != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Close",
					"error":    werr.Error(),
				}).Debug("Could not send close frame")
			}
			c.writeMu.Unlock()
		}

		c.queue.shutdown()
		err = c.conn.Close()
	})
	return err
}
