package app

import (
	"context"
	"errors"

	"qrshare/internal/session"
	"qrshare/internal/transport"

	"github.com/sirupsen/logrus"
)

// Connector opens the transport channel for one side of a session.
type Connector interface {
	// PairingURL is the URL the sender shows for desc.
	PairingURL(desc session.Descriptor) string
	// Connect opens the channel for desc. joinURL is the URL this peer dials:
	// the pairing URL for the sender, its receiver variant for the receiver.
	Connect(ctx context.Context, desc session.Descriptor, joinURL string) (*Connection, error)
}

// Connection is an open channel plus whatever must be released with it.
type Connection struct {
	Channel transport.Channel
	// Announce is set when the receiver, not the transport, must tell the
	// sender it has joined.
	Announce bool

	closers []func() error
}

// Close releases the channel and its resources in reverse order of setup.
func (c *Connection) Close() error {
	errs := make([]error, 0, len(c.closers)+1)
	if c.Channel != nil {
		errs = append(errs, c.Channel.Close())
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}

	err := errors.Join(errs...)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Connection.Close",
			"error":    err.Error(),
		}).Warn("Error releasing connection")
	}
	return err
}

func (c *Connection) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}
